//go:build windows

package html2pdf

const printShortcut = "Ctrl+P"

func openCommand(path string) []string {
	return []string{"rundll32", "url.dll,FileProtocolHandler", path}
}
