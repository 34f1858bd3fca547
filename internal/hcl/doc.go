// Package hcl provides the HCL implementation of config.Loader. Files may
// use native HCL syntax (.hcl) or its JSON variant (.hcl.json).
package hcl
