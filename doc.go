// Package hdrplus implements the HDR+ burst align-and-merge core: given a
// burst of raw CFA frames and a reference index, Process hierarchically
// aligns every comparison frame onto the reference and merges them with
// either the spatial (fast) or frequency-domain (higher quality) engine,
// then normalizes exposure and quantizes the result.
package hdrplus
