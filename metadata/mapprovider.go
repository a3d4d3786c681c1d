package metadata

import "sync"

// MapProvider is an in-memory Provider backed by nested maps. It serves
// tests and the CLI; applications typically adapt their own image cache.
type MapProvider struct {
	mu      sync.RWMutex
	records map[string]map[string]any // module -> imageID -> record
}

// NewMapProvider creates an empty MapProvider.
func NewMapProvider() *MapProvider {
	return &MapProvider{records: make(map[string]map[string]any)}
}

// Set stores a module record for an image.
func (m *MapProvider) Set(module, imageID string, record any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byImage, ok := m.records[module]
	if !ok {
		byImage = make(map[string]any)
		m.records[module] = byImage
	}
	byImage[imageID] = record
}

// Get implements Provider.
func (m *MapProvider) Get(module, imageID string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byImage, ok := m.records[module]
	if !ok {
		return nil, false
	}
	v, ok := byImage[imageID]
	return v, ok
}

// AddImage registers the standard module set for one image in a single
// call. Nil records are skipped.
func (m *MapProvider) AddImage(imageID string, plane *ImagePlane, sop *SOPCommon, series *GeneralSeries, study *GeneralStudy) {
	if plane != nil {
		m.Set(ModuleImagePlane, imageID, plane)
	}
	if sop != nil {
		m.Set(ModuleSOPCommon, imageID, sop)
	}
	if series != nil {
		m.Set(ModuleGeneralSeries, imageID, series)
	}
	if study != nil {
		m.Set(ModuleGeneralStudy, imageID, study)
	}
}
