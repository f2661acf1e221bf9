package app

import (
	"github.com/coreos/go-systemd/v22/daemon"

	logx "crewsched/pkg/logx"
)

// sdNotify reports state to systemd. Outside a Type=notify unit it is a no-op.
func sdNotify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}
