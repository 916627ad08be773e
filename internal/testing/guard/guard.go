// Package guard flips the runtime into test mode before any package
// init runs. Test packages that would otherwise touch external services
// blank-import it.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LLANTERA_TEST_MODE") == "" {
			_ = os.Setenv("LLANTERA_TEST_MODE", "1")
		}
		if os.Getenv("GOTENBERG_URL") == "" {
			_ = os.Setenv("GOTENBERG_URL", "http://127.0.0.1:0")
		}
	})
}
