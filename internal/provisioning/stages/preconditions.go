package stages

import (
	"context"
	"fmt"

	"github.com/imamik/archer/internal/provisioning"
	"github.com/imamik/archer/internal/validate"
)

// deviceIdle fails when the device or any of its partitions is mounted or
// used as swap.
func deviceIdle(device string) func(context.Context, provisioning.Host) error {
	return func(_ context.Context, h provisioning.Host) error {
		if _, err := h.BlockDevice(device); err != nil {
			return fmt.Errorf("target device %s: %w", device, err)
		}
		mounts, err := h.Mounts()
		if err != nil {
			return err
		}
		for _, m := range mounts {
			if validate.OnDevice(m.Source, device) {
				return fmt.Errorf("target device %s is busy: %s is mounted at %s", device, m.Source, m.Target)
			}
		}
		return nil
	}
}

// mountedAt fails unless something is mounted at target.
func mountedAt(target string) func(context.Context, provisioning.Host) error {
	return func(_ context.Context, h provisioning.Host) error {
		mounts, err := h.Mounts()
		if err != nil {
			return err
		}
		for _, m := range mounts {
			if m.Target == target {
				return nil
			}
		}
		return fmt.Errorf("%s is not mounted", target)
	}
}

// notMountedAt fails when target is already a mountpoint.
func notMountedAt(target string) func(context.Context, provisioning.Host) error {
	return func(_ context.Context, h provisioning.Host) error {
		mounts, err := h.Mounts()
		if err != nil {
			return err
		}
		for _, m := range mounts {
			if m.Target == target {
				return fmt.Errorf("%s is already mounted (%s)", target, m.Source)
			}
		}
		return nil
	}
}

// DeviceIdle is the busy-device check the CLI runs before a fresh install.
func DeviceIdle(ctx context.Context, h provisioning.Host, device string) error {
	return deviceIdle(device)(ctx, h)
}
