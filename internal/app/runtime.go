package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv is set by the blank-imported testing package.
const TestModeEnv = "BIZDESK_TEST_MODE"

// InTestMode reports whether binaries should skip connecting to backing
// services. The environment is read once per process.
var InTestMode = sync.OnceValue(func() bool {
	return testModeEnabled(os.Getenv(TestModeEnv))
})

func testModeEnabled(raw string) bool {
	on, err := strconv.ParseBool(raw)
	return err == nil && on
}
