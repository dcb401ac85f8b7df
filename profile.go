package mgm

import (
	"strconv"
	"time"

	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

// UserProfile carries optional profile fields attached to Identify. Nil
// fields are not sent.
type UserProfile struct {
	Email *string
	Name  *string
}

func (p *UserProfile) isEmpty() bool {
	return p == nil || (p.Email == nil && p.Name == nil)
}

// identifyResendWindow bounds how long a debounced $identify stays
// suppressed even when the profile is unchanged.
const identifyResendWindow = 24 * time.Hour

// identifyDebouncer decides whether an Identify call needs to emit a
// $identify event. The hash is a local debounce detail, not a wire contract.
type identifyDebouncer struct {
	state  adapters.StateStore
	logger adapters.LoggerAdapter
}

func newIdentifyDebouncer(state adapters.StateStore, logger adapters.LoggerAdapter) *identifyDebouncer {
	return &identifyDebouncer{state: state, logger: logger}
}

// shouldSend reports whether the profile changed since the last sent
// $identify, or the last send is older than the resend window.
func (d *identifyDebouncer) shouldSend(userID string, profile *UserProfile, now time.Time) bool {
	hash := profileHash(userID, profile)

	stored, hasHash, err := d.state.Get(keyIdentifyHash)
	if err != nil {
		d.logger.Warn("failed to read identify debounce state: %v", err)
		return true
	}
	sentAtRaw, hasSentAt, err := d.state.Get(keyIdentifySentAt)
	if err != nil {
		d.logger.Warn("failed to read identify debounce state: %v", err)
		return true
	}
	if !hasHash || !hasSentAt || stored != hash {
		return true
	}

	sentAt, err := strconv.ParseInt(sentAtRaw, 10, 64)
	if err != nil {
		return true
	}
	return now.Sub(time.UnixMilli(sentAt)) >= identifyResendWindow
}

// markSent records the hash and send time for future debounce decisions.
func (d *identifyDebouncer) markSent(userID string, profile *UserProfile, now time.Time) {
	if err := d.state.Set(keyIdentifyHash, profileHash(userID, profile)); err != nil {
		d.logger.Warn("failed to persist identify debounce hash: %v", err)
		return
	}
	if err := d.state.Set(keyIdentifySentAt, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		d.logger.Warn("failed to persist identify debounce time: %v", err)
	}
}

// reset clears the debounce state so the next Identify with the same data
// unconditionally resends.
func (d *identifyDebouncer) reset() {
	if err := d.state.Delete(keyIdentifyHash); err != nil {
		d.logger.Warn("failed to clear identify debounce hash: %v", err)
	}
	if err := d.state.Delete(keyIdentifySentAt); err != nil {
		d.logger.Warn("failed to clear identify debounce time: %v", err)
	}
}

// profileHash computes a stable hash over userId|email|name.
func profileHash(userID string, profile *UserProfile) string {
	input := userID + "|"
	if profile != nil && profile.Email != nil {
		input += *profile.Email
	}
	input += "|"
	if profile != nil && profile.Name != nil {
		input += *profile.Name
	}
	return strconv.Itoa(hash31(input))
}
