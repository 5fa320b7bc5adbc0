//go:build !linux

/*
Copyright (C) 2023  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package topology

import "runtime"

// PinCurrentThread locks the calling goroutine to its OS thread.
// Scheduling affinity is Linux-specific; on other platforms we settle
// for thread pinning, which still gives each worker a stable OS thread
// to amortize migration cost across.
func (s *Service) PinCurrentThread(id int) error {
	runtime.LockOSThread()
	return nil
}
