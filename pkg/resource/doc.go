// Package resource defines the normalized resource contract model, the
// builder that derives contracts from raw definitions, the contract
// provider with its staleness-checked cache, and the standard error
// types shared by every layer of the engine.
package resource
