//go:build !darwin && !windows

package html2pdf

const printShortcut = "Ctrl+P"

func openCommand(path string) []string {
	return []string{"xdg-open", path}
}
