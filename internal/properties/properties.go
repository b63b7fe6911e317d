package properties

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

// OutputRoot is the base directory for run artifacts when the caller does
// not pass one. Defaults to ./data/output under the root path.
func OutputRoot() string {
	if v := os.Getenv("OUTPUT_ROOT"); v != "" {
		return v
	}
	return filepath.Join(RootPath(), "data", "output")
}

func CacheDir() string {
	if v := os.Getenv("CACHE_DIR"); v != "" {
		return v
	}
	return filepath.Join(RootPath(), "data", "cache")
}

// DefaultWorkers bounds the pixel-parallel fan-out. WORKERS=0 or unset
// falls back to the machine's CPU count.
func DefaultWorkers() int {
	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}
