package config

import "os"

// atomicRename renames tmp over dst, the write-temp-then-rename
// pattern used for rewriting the config file during set-balances.
func atomicRename(tmp, dst string) error {
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
