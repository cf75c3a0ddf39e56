package constants

const DefaultScaleFactor float64 = 1.
const DefaultMaxDepth int = 32         // [levels], 0 disables the cap
const BoundsPadding float64 = 1e-6     // relative to the extent of a derived domain
const MinBoundsPadding float64 = 1e-12 // [m], for samples that are all coplanar or coincident
const Quantile95 = 0.95
