// Package engine builds pages. It ties the registry, the application bundle
// builder, a bundling strategy, the async package scheduler, the writer and
// the build cache together behind a single BuildPage call.
//
// A page build runs in this order:
//  1. Application mappings are resolved through the cache, building them on
//     a miss.
//  2. The page manifest is walked synchronously and each leaf is placed by
//     the strategy. Async package names found on the way are queued.
//  3. Queued async packages are built concurrently once the synchronous walk
//     has succeeded. Async packages may queue further async packages.
//  4. Every bundle the page needs is written.
//  5. The result is assembled, cached and announced.
package engine
