package detect

import "errors"

// ErrEngineInit reports that the recognition engine could not be initialized
// under either the full or the reduced configuration. The failure is sticky,
// later calls return it without retrying.
var ErrEngineInit = errors.New("recognition engine initialization failed")
