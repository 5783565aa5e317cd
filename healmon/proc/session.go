package proc

import (
	"bytes"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Overrides is a set of environment variables discovered by a session
// strategy.
type Overrides map[string]string

// A Strategy attempts one way of discovering the graphical session
// environment. It reports false when it found nothing.
type Strategy func() (Overrides, bool)

// sessionVars are the variables a GUI process needs to reach the user's
// display and session bus.
var sessionVars = []string{
	"DISPLAY",
	"XAUTHORITY",
	"DBUS_SESSION_BUS_ADDRESS",
	"XDG_RUNTIME_DIR",
	"WAYLAND_DISPLAY",
}

// SessionEnviron assembles the launch environment: the supervisor's own
// environment first, then each discovery strategy in order of precedence.
// A variable that is already set is never overwritten by a fallback.
func SessionEnviron() []string {
	env := environMap(os.Environ())
	ensureHome(env)

	for _, strategy := range []Strategy{
		peerEnvironStrategy,
		socketProbeStrategy,
		defaultSessionStrategy,
	} {
		overrides, ok := strategy()
		if !ok {
			continue
		}
		for k, v := range overrides {
			if env[k] == "" {
				env[k] = v
			}
		}
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// peerEnvironStrategy samples session variables from another process owned by
// the same user, the way a logged-in desktop session would have them set.
func peerEnvironStrategy() (Overrides, bool) {
	t := Table{}
	self := os.Getpid()
	uid := uint32(os.Getuid())

	for _, pid := range t.pids() {
		if pid == self {
			continue
		}

		dir := filepath.Join(t.fs(), strconv.Itoa(pid))
		info, err := os.Stat(dir)
		if err != nil {
			continue
		}
		if st, ok := info.Sys().(*syscall.Stat_t); !ok || st.Uid != uid {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, "environ"))
		if err != nil || len(raw) == 0 {
			continue
		}

		found := Overrides{}
		for _, kv := range bytes.Split(raw, []byte{0}) {
			k, v, ok := strings.Cut(string(kv), "=")
			if !ok || v == "" {
				continue
			}
			for _, want := range sessionVars {
				if k == want {
					found[k] = v
				}
			}
		}

		// Only a process that actually reaches a display is worth copying.
		if found["DISPLAY"] != "" || found["WAYLAND_DISPLAY"] != "" {
			return found, true
		}
	}

	return nil, false
}

// socketProbeStrategy checks the well-known X11 and Wayland socket locations
// and session files.
func socketProbeStrategy() (Overrides, bool) {
	found := Overrides{}
	runtimeDir := "/run/user/" + strconv.Itoa(os.Getuid())

	if display := probeX11Sockets("/tmp/.X11-unix"); display != "" {
		found["DISPLAY"] = display
	} else if b, err := os.ReadFile(filepath.Join(runtimeDir, ".x11_display")); err == nil {
		if display := strings.TrimSpace(string(b)); display != "" {
			found["DISPLAY"] = display
		}
	}

	if _, err := os.Stat(filepath.Join(runtimeDir, "wayland-0")); err == nil {
		found["WAYLAND_DISPLAY"] = "wayland-0"
		found["XDG_RUNTIME_DIR"] = runtimeDir
	}

	if home, err := os.UserHomeDir(); err == nil {
		xa := filepath.Join(home, ".Xauthority")
		if _, err := os.Stat(xa); err == nil {
			found["XAUTHORITY"] = xa
		}
	}

	return found, len(found) > 0
}

// probeX11Sockets returns ":<n>" for the first X<n> socket in dir, or "".
func probeX11Sockets(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, ent := range ents {
		name := ent.Name()
		if strings.HasPrefix(name, "X") && len(name) > 1 {
			return ":" + name[1:]
		}
	}
	return ""
}

// defaultSessionStrategy is the hardcoded last resort.
func defaultSessionStrategy() (Overrides, bool) {
	uid := strconv.Itoa(os.Getuid())
	return Overrides{
		"DISPLAY":                  ":0",
		"DBUS_SESSION_BUS_ADDRESS": "unix:path=/run/user/" + uid + "/bus",
		"XDG_RUNTIME_DIR":          "/run/user/" + uid,
	}, true
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// ensureHome fills in HOME from the passwd database; XAUTHORITY discovery
// depends on it.
func ensureHome(env map[string]string) {
	if env["HOME"] != "" {
		return
	}
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		env["HOME"] = u.HomeDir
	}
}
