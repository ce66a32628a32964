package startup

import (
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// AppID names the login item on every platform
const AppID = "gopher-deck"

// Entry is the command the desktop session runs at login
type Entry struct {
	Exec string
	Args []string
}

// current returns an entry launching this executable with args
func current(args []string) (Entry, error) {
	execPath, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to locate executable: %w", err)
	}
	return Entry{Exec: execPath, Args: args}, nil
}

// Enable registers the application to launch at login with args
func Enable(args ...string) error {
	e, err := current(args)
	if err != nil {
		return err
	}
	switch runtime.GOOS {
	case "darwin":
		return writeFile(macOSPlistPath(), macOSPlist(e))
	case "linux":
		return writeFile(linuxDesktopPath(), linuxDesktopEntry(e))
	case "windows":
		return enableWindows(e)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Disable removes the application from login items
func Disable() error {
	switch runtime.GOOS {
	case "darwin":
		return removeFile(macOSPlistPath())
	case "linux":
		return removeFile(linuxDesktopPath())
	case "windows":
		return disableWindows()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// IsEnabled checks if the application is registered for login
func IsEnabled() bool {
	switch runtime.GOOS {
	case "darwin":
		return exists(macOSPlistPath())
	case "linux":
		return exists(linuxDesktopPath())
	case "windows":
		return exec.Command("reg", "query", windowsRegistryKey, "/v", windowsAppName).Run() == nil
	default:
		return false
	}
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func removeFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// --- macOS ---

func macOSPlistPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "LaunchAgents", "com."+AppID+".plist")
}

func macOSPlist(e Entry) string {
	var args strings.Builder
	for _, a := range append([]string{e.Exec}, e.Args...) {
		fmt.Fprintf(&args, "        <string>%s</string>\n", html.EscapeString(a))
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.%s</string>
    <key>ProgramArguments</key>
    <array>
%s    </array>
    <key>RunAtLoad</key>
    <true/>
</dict>
</plist>
`, AppID, args.String())
}

// --- Linux ---

func linuxDesktopPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "autostart", AppID+".desktop")
}

func linuxDesktopEntry(e Entry) string {
	return fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=GopherDeck
Comment=DDJ-400 controller mapping
Exec=%s
Hidden=false
NoDisplay=false
X-GNOME-Autostart-enabled=true
`, commandLine(e))
}

// commandLine quotes arguments for an Exec key or a registry Run value
func commandLine(e Entry) string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, a := range append([]string{e.Exec}, e.Args...) {
		if strings.ContainsAny(a, " \t\"") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// --- Windows ---

const windowsRegistryKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`
const windowsAppName = "GopherDeck"

func enableWindows(e Entry) error {
	cmd := exec.Command("reg", "add", windowsRegistryKey,
		"/v", windowsAppName,
		"/t", "REG_SZ",
		"/d", commandLine(e),
		"/f")
	return cmd.Run()
}

func disableWindows() error {
	cmd := exec.Command("reg", "delete", windowsRegistryKey,
		"/v", windowsAppName,
		"/f")
	output, err := cmd.CombinedOutput()
	// Ignore error if the key doesn't exist
	if err != nil && !strings.Contains(string(output), "The system was unable to find the specified registry key or value") {
		return err
	}
	return nil
}
