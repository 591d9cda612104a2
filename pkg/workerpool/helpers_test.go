package workerpool

import (
	"io"
	"log"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

func discardLogger() logr.Logger {
	return stdr.New(log.New(io.Discard, "", 0))
}
