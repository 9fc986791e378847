//go:build darwin

package darwin

import "runtime"

var isNativeArm64 = runtime.GOARCH == "arm64"
