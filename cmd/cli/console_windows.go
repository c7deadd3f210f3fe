//go:build windows

package main

import (
	"golang.org/x/sys/windows"
)

func init() {
	// UTF-8 code page for box-drawing borders and the banner. Redirected
	// PowerShell pipes use [Console]::OutputEncoding instead.
	const cpUTF8 = 65001
	windows.SetConsoleOutputCP(cpUTF8)
	windows.SetConsoleCP(cpUTF8)

	// ANSI colours and the OSC52 clipboard sequence need VT processing.
	for _, stdHandle := range []uint32{windows.STD_ERROR_HANDLE, windows.STD_OUTPUT_HANDLE} {
		if h, err := windows.GetStdHandle(stdHandle); err == nil {
			var mode uint32
			if windows.GetConsoleMode(h, &mode) == nil {
				_ = windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING)
			}
		}
	}
}
