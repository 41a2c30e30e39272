// Package threat holds the fixed table of injection pattern families used to
// annotate user input. Matching is advisory: it raises the risk level reported
// alongside validation results but is never a substitute for parameterized
// queries or output escaping at the real data-access and rendering boundaries.
package threat
