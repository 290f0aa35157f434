package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TOKOLEDGER_TEST_MODE") == "" {
			_ = os.Setenv("TOKOLEDGER_TEST_MODE", "1")
		}
	})
}
