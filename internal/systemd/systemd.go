package systemd

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/coreos/go-systemd/v22/activation"
	"github.com/coreos/go-systemd/v22/daemon"
)

// Listener names as set with FileDescriptorName= in daygauge.socket.
const (
	WebListener     = "web"
	MetricsListener = "metrics"
)

// Listeners holds the systemd-activated listeners
type Listeners struct {
	Web       net.Listener
	Metrics   net.Listener
	Activated bool
}

// GetListeners retrieves systemd socket-activated file descriptors.
// Returns nil listeners if not running under socket activation.
func GetListeners() (*Listeners, error) {
	listeners := &Listeners{}

	if !activated() {
		return listeners, nil
	}

	listeners.Activated = true

	named, err := activation.ListenersWithNames()
	if err != nil {
		return nil, fmt.Errorf("failed to get systemd listeners: %w", err)
	}

	listeners.Web = first(named, WebListener)
	listeners.Metrics = first(named, MetricsListener)

	return listeners, nil
}

// activated reports whether systemd passed sockets to this process. It reads
// the environment only, so no descriptors are wrapped before
// ListenersWithNames takes ownership of them.
func activated() bool {
	pid, err := strconv.Atoi(os.Getenv("LISTEN_PID"))
	if err != nil || pid != os.Getpid() {
		return false
	}
	fds, err := strconv.Atoi(os.Getenv("LISTEN_FDS"))
	return err == nil && fds > 0
}

func first(named map[string][]net.Listener, name string) net.Listener {
	if lns, ok := named[name]; ok && len(lns) > 0 {
		return lns[0]
	}
	return nil
}

// NotifyReady tells systemd that startup has finished. Outside systemd this
// is a no-op.
func NotifyReady() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		return fmt.Errorf("failed to send sd_notify: %w", err)
	}
	return nil
}

// NotifyStopping tells systemd that shutdown has begun.
func NotifyStopping() error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		return fmt.Errorf("failed to send sd_notify stopping: %w", err)
	}
	return nil
}
