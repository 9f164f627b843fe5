// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cogentcore/wgpuengine/base/errors"
	"github.com/cogentcore/wgpuengine/resource"

	"github.com/fsnotify/fsnotify"
)

// ShaderWatcher hot-reloads WGSL files: when a watched file changes,
// the corresponding shader module descriptor is updated with the new
// source, damaging the module and every pipeline built from it, so
// the next dispatch rebuilds them.
type ShaderWatcher struct {
	rm      *resource.Manager
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	shaders map[string]watchedShader
	done    chan struct{}
}

type watchedShader struct {
	task TaskID
	id   resource.ID
}

// NewShaderWatcher returns a running [ShaderWatcher] over the
// engine's resources. Close it when done.
func (e *Engine) NewShaderWatcher() (*ShaderWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &ShaderWatcher{
		rm:      e.rm,
		watcher: fw,
		shaders: map[string]watchedShader{},
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Watch reloads the shader module resource id, owned by task, from
// the WGSL file at path whenever it changes.
func (w *ShaderWatcher) Watch(path string, task TaskID, id resource.ID) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, ok := resource.DescriptorAs[*resource.ShaderModuleDescriptor](w.rm, id); !ok {
		return fmt.Errorf("engine: %d is not a shader module", id)
	}
	w.mu.Lock()
	w.shaders[abs] = watchedShader{task: task, id: id}
	w.mu.Unlock()
	return w.watcher.Add(abs)
}

// Close stops watching.
func (w *ShaderWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *ShaderWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.reload(ev.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			errors.Log(err)
		}
	}
}

func (w *ShaderWatcher) reload(path string) {
	abs, err := filepath.Abs(path)
	if errors.Log(err) != nil {
		return
	}
	w.mu.Lock()
	ws, ok := w.shaders[abs]
	w.mu.Unlock()
	if !ok {
		return
	}
	src, err := os.ReadFile(abs)
	if errors.Log(err) != nil {
		return
	}
	d, ok := resource.DescriptorAs[*resource.ShaderModuleDescriptor](w.rm, ws.id)
	if !ok {
		return
	}
	nd := *d
	nd.Source = string(src)
	id, err := w.rm.Update(ws.task, ws.id, &nd)
	if errors.Log(err) != nil {
		return
	}
	if id != ws.id {
		w.mu.Lock()
		w.shaders[abs] = watchedShader{task: ws.task, id: id}
		w.mu.Unlock()
	}
}
