package platform

import "errors"

var ErrNamespaceNotFound = errors.New("platform: virtual stigmergy namespace not found")
