package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SLACONSOLE_TEST_MODE") == "" {
			_ = os.Setenv("SLACONSOLE_TEST_MODE", "1")
		}
	})
}
