// Package assets indexes the asset directory and decodes files through
// per-type loaders. The index follows the directory through fsnotify;
// changed files are logged, not reloaded.
package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

var ErrAssetNotFound = errors.New("asset not found")

type AssetInfo struct {
	Path       string
	Type       loaders.ResourceType
	LastLoaded time.Time
	Modified   time.Time
}

type AssetManager struct {
	root       string
	shadersDir string

	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating watcher")
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[loaders.ResourceType]Loader),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Initialize indexes assetsDir recursively and starts watching it. Shader
// names resolve inside shadersDir, relative to assetsDir. Scene files are
// decoded on jobs.
func (am *AssetManager) Initialize(assetsDir, shadersDir string, jobs *systems.JobSystem) error {
	am.root = filepath.Clean(assetsDir)
	am.shadersDir = shadersDir

	if err := am.addRecursive(am.root); err != nil {
		return errors.Wrapf(err, "watching %s", am.root)
	}
	go am.start()

	// Register loaders
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(loaders.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(loaders.ResourceTypeModel, &loaders.ModelLoader{})
	am.registerLoader(loaders.ResourceTypeFont, &loaders.BitmapFontLoader{})
	am.registerLoader(loaders.ResourceTypeScene, &loaders.SceneLoader{Jobs: jobs})

	core.LogInfo("Asset index ready: %d files under %s", am.Count(), am.root)
	return nil
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.isClosed {
		return errors.New("asset watcher already closed")
	}
	return am.watchRecursive(name, false)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// Count returns the number of indexed files.
func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Info returns the index entry for name, relative to the asset root.
func (am *AssetManager) Info(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Join(am.root, name)]
	return info, ok
}

// Load decodes the indexed file name, relative to the asset root, with the
// loader registered for its extension.
func (am *AssetManager) Load(name string, params interface{}) (*loaders.Resource, error) {
	path := filepath.Join(am.root, name)

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[path] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, errors.Wrapf(ErrAssetNotFound, "%s", path)
	}

	loader, loaderExists := am.loaders[asset.Type]
	if !loaderExists {
		return nil, errors.Newf("no loader registered for asset type %s", asset.Type)
	}
	res, err := loader.Load(path, params)
	if err != nil {
		return nil, err
	}
	core.LogDebug("Loaded %s %s (%d bytes)", asset.Type, path, res.DataSize)
	return res, nil
}

// Shader returns the SPIR-V words of shaders/<name>.spv.
func (am *AssetManager) Shader(name string) ([]uint32, error) {
	res, err := am.Load(filepath.Join(am.shadersDir, name+".spv"), nil)
	if err != nil {
		return nil, err
	}
	return res.Data.([]uint32), nil
}

func (am *AssetManager) Font(name string) (*metadata.FontData, error) {
	res, err := am.Load(name, nil)
	if err != nil {
		return nil, err
	}
	font, ok := res.Data.(*metadata.FontData)
	if !ok {
		return nil, errors.Newf("%s is not a font", name)
	}
	return font, nil
}

func (am *AssetManager) Scene(name string) (*loaders.SceneAssets, error) {
	res, err := am.Load(name, nil)
	if err != nil {
		return nil, err
	}
	sc, ok := res.Data.(*loaders.SceneAssets)
	if !ok {
		return nil, errors.Newf("%s is not a scene", name)
	}
	return sc, nil
}

// Shutdown stops the watcher goroutine.
func (am *AssetManager) Shutdown() {
	if am.isClosed {
		return
	}
	am.isClosed = true
	close(am.done)
	<-am.stopped
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Has(fsnotify.Create) {
					if err := am.watchRecursive(e.Name, false); err != nil {
						core.LogWarn("watching %s: %s", e.Name, err)
					}
				}
				continue
			}
			if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
				if am.handleFileEvent(e.Name) {
					core.LogInfo("Asset changed: %s (restart to pick it up)", e.Name)
				}
			}
			if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
				am.removeAsset(e.Name)
				// Removing a path that is not watched fails; only directories are.
				_ = am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files it finds.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file. It reports whether the
// file was already indexed.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := loaders.TypeOf(path)
	if assetType == loaders.ResourceTypeNone {
		return false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, existed := am.assets[path]
	info.Path = path
	info.Type = assetType
	info.Modified = time.Now()
	am.assets[path] = info
	return existed
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}
