// Package guard flips the process into test mode on import. Test files of
// the cmd packages blank-import it so their main functions stay inert.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("AUTHD_TEST_MODE") == "" {
			_ = os.Setenv("AUTHD_TEST_MODE", "1")
		}
	})
}
