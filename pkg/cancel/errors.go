package cancel

import "github.com/kcenon/messaging-fabric/pkg/result"

var errCancelled = result.New(result.KindCancelled, "operation cancelled")
