package parser

import (
	"github.com/Venkat5694/nuclide/pkg/util"
)

// getDefaultPoolSize returns the per-grammar parser pool size.
//
// Delegates to util.GetOptimalPoolSize() so the parser pool and the scan
// worker pool always agree; a smaller parser pool would make scan workers
// queue on parser acquisition.
func getDefaultPoolSize() int {
	return util.GetOptimalPoolSize()
}
