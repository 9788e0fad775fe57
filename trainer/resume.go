package trainer

import "github.com/neurlang/boltzmann/checkpoint"

// Resume loads the checkpoint in dir into m when resume is set and one exists.
// It reports whether a checkpoint was loaded.
func Resume(m Loader, resume bool, dir string) (bool, error) {
	if !resume || dir == "" || !checkpoint.Exists(dir) {
		return false, nil
	}
	if err := m.Load(dir); err != nil {
		return false, err
	}
	return true, nil
}
