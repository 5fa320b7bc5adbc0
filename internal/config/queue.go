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

package config

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fsnotify/fsnotify"
)

// LineSource yields one experiment-command line at a time, blank lines
// skipped. Next's second return is false once the source is permanently
// exhausted.
type LineSource interface {
	Next() (line string, ok bool)
	Close() error
}

// FileQueue reads experiment lines from a commands file. If an
// fsnotify watch can be installed on it, FileQueue keeps tailing the
// file for lines appended while a run is already in progress --
// modeled on the teacher's own use of fsnotify for live config reload,
// generalized from "reload a schema" to "append more experiments".
// Without a watcher it behaves like a plain line-at-a-time reader that
// ends at EOF.
type FileQueue struct {
	f       *os.File
	r       *bufio.Reader
	watcher *fsnotify.Watcher
}

// NewFileQueue opens path and best-effort installs a watcher on it.
// The caller maps a non-nil error here to exit code 2 (spec §6).
func NewFileQueue(path string) (*FileQueue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	q := &FileQueue{f: f, r: bufio.NewReader(f)}
	if w, werr := fsnotify.NewWatcher(); werr == nil {
		if werr := w.Add(path); werr == nil {
			q.watcher = w
		} else {
			w.Close()
		}
	}
	return q, nil
}

// Next blocks until a line is available. With no watcher installed,
// EOF permanently exhausts the queue; with one, Next blocks for
// further Write events on the file instead of returning immediately.
func (q *FileQueue) Next() (string, bool) {
	for {
		line, err := q.r.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if err == nil {
			if line == "" {
				continue
			}
			return line, true
		}
		if err != io.EOF {
			return "", false
		}
		if line != "" {
			return line, true
		}
		if q.watcher == nil {
			return "", false
		}
		select {
		case ev, ok := <-q.watcher.Events:
			if !ok {
				return "", false
			}
			if ev.Op&fsnotify.Write == 0 {
				continue
			}
		case <-q.watcher.Errors:
			return "", false
		}
	}
}

// Close releases the watcher (if any) and the underlying file.
func (q *FileQueue) Close() error {
	if q.watcher != nil {
		q.watcher.Close()
	}
	return q.f.Close()
}

// InteractiveQueue reads experiment lines from a readline prompt when
// no commands file was given, exactly as the teacher drops into
// scm.Repl() with no script argument -- built on
// github.com/chzyer/readline for history and line editing instead of
// raw stdin scanning.
type InteractiveQueue struct {
	rl *readline.Instance
}

// NewInteractiveQueue starts an interactive "sgd> " prompt.
func NewInteractiveQueue() (*InteractiveQueue, error) {
	rl, err := readline.New("sgd> ")
	if err != nil {
		return nil, err
	}
	return &InteractiveQueue{rl: rl}, nil
}

// Next reads until EOF or a line equal to "exit" (spec §6), skipping
// blank lines.
func (q *InteractiveQueue) Next() (string, bool) {
	for {
		line, err := q.rl.Readline()
		if err != nil {
			return "", false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			return "", false
		}
		return line, true
	}
}

// Close shuts down the readline instance.
func (q *InteractiveQueue) Close() error { return q.rl.Close() }

var (
	_ LineSource = (*FileQueue)(nil)
	_ LineSource = (*InteractiveQueue)(nil)
)
