//go:build darwin

package html2pdf

const printShortcut = "Cmd+P"

func openCommand(path string) []string {
	return []string{"open", path}
}
