package learning

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const (
	saveAttempts     = 3
	saveBackoffBase  = 100 * time.Millisecond
	saveBackoffLimit = 2 * time.Second
)

// LoadUserProfile reads the profile file and sanitizes whatever it finds
// into a fully populated profile. It never panics and never leaves the
// engine without a usable profile: missing files, truncated JSON, and
// wrong-shaped values all degrade to per-field defaults. The returned
// error reports unreadable files (e.g. permissions) for diagnostics
// only; the engine is valid either way.
func (e *Engine) LoadUserProfile() error {
	data, err := os.ReadFile(e.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		e.logger.Warn("failed to read user profile, keeping defaults", zap.Error(err))
		return err
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		e.logger.Warn("user profile is not valid JSON, repairing", zap.Error(err))
		raw = nil
	}

	profile := e.sanitizeProfile(raw)

	e.mu.Lock()
	e.profile = profile
	// The stored intensity preference drives the hint cooldown from the
	// first hint on, not only after an explicit SetFlowState.
	e.flow.Intensity = profile.Preferences.HintIntensity
	e.mu.Unlock()

	e.logger.Debug("user profile loaded",
		zap.String("user_id", profile.UserID),
		zap.Int("workflow_patterns", len(profile.WorkflowPatterns)))
	return nil
}

// SaveUserProfile writes the profile with up to three attempts and
// exponential backoff. Permanent OS faults (permissions, read-only
// filesystem, disk full, bad paths) abort immediately. Failures are
// logged and returned as data; nothing is thrown, and the in-memory
// profile keeps working regardless.
func (e *Engine) SaveUserProfile() error {
	e.mu.Lock()
	e.profile.LastActive = e.now()
	data, err := json.MarshalIndent(e.profile, "", "  ")
	e.mu.Unlock()
	if err != nil {
		e.logger.Error("failed to marshal user profile", zap.Error(err))
		return err
	}

	var lastErr error
	delay := saveBackoffBase
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		lastErr = e.writeProfile(data)
		if e.saveCounter != nil {
			e.saveCounter.Add(context.Background(), 1, metric.WithAttributes(
				attribute.Bool("success", lastErr == nil),
			))
		}
		if lastErr == nil {
			return nil
		}
		if isPermanentFault(lastErr) {
			e.logger.Warn("permanent fault saving user profile, not retrying",
				zap.Error(lastErr))
			return lastErr
		}
		e.logger.Warn("failed to save user profile, will retry",
			zap.Int("attempt", attempt), zap.Error(lastErr))
		if attempt < saveAttempts {
			e.sleep(delay)
			delay *= 2
			if delay > saveBackoffLimit {
				delay = saveBackoffLimit
			}
		}
	}

	e.logger.Error("giving up saving user profile", zap.Error(lastErr))
	return lastErr
}

// writeProfile performs one atomic write attempt.
func (e *Engine) writeProfile(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return err
	}
	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, e.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// permanentErrnos are OS error classes a retry cannot fix.
var permanentErrnos = []syscall.Errno{
	syscall.EACCES,
	syscall.EPERM,
	syscall.EROFS,
	syscall.ENOSPC,
	syscall.EINVAL,
	syscall.ENOTDIR,
	syscall.ENAMETOOLONG,
}

// isPermanentFault classifies errors per the retry policy: permission,
// read-only filesystem, disk-full, and invalid-path faults never retry;
// everything else is treated as transient.
func isPermanentFault(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) || errors.Is(err, os.ErrInvalid) {
		return true
	}
	for _, errno := range permanentErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
