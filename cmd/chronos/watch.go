package main

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// editors write a file in several steps
const settle = 50 * time.Millisecond

// watchFile calls reload after file is written. The directory is watched
// rather than the file, so saves that replace the file are seen too.
// Closing the returned watcher stops it.
func watchFile(file string, log zerolog.Logger, reload func()) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	file = filepath.Clean(file)
	if err := w.Add(filepath.Dir(file)); err != nil {
		w.Close()
		return nil, err
	}
	go func() {
		var t *time.Timer
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					if t != nil {
						t.Stop()
					}
					return
				}
				if filepath.Clean(ev.Name) != file || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if t == nil {
					t = time.AfterFunc(settle, reload)
				} else {
					t.Reset(settle)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("watch")
			}
		}
	}()
	return w, nil
}
