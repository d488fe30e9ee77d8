package verify

import "errors"

var ErrNoOrders = errors.New("no orders")
