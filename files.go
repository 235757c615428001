/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"github.com/dustin/go-humanize"
)

func humanReadableSize(bytes int64) string {
	return humanize.Bytes(uint64(max(bytes, 0)))
}
