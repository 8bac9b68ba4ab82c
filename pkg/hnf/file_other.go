//go:build !unix

package hnf

import (
	"errors"
	"os"
)

func mmapFile(*os.File, int) ([]byte, func() error, error) {
	return nil, nil, errors.New("mmap unsupported")
}
