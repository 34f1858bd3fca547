/*
Package builder materializes the application-level bundles that pages share.

Bundle configurations are processed strictly in declared order. For each
configuration the builder:

 1. Normalizes the configured dependency list into root dependencies.

 2. Walks each root with a skip predicate built from the root's recursion
    policy. A dependency already mapped by an earlier configuration is
    skipped, so the first configuration that reaches a dependency owns it.

 3. Assigns every visited bundleable leaf to the configuration's bundle in
    the shared bundle mappings.

The result is a *bundle.Mappings with no parent that page builds layer their
own mappings over.
*/
package builder
