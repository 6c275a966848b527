package htp1

import (
	"fmt"
	"sort"
)

// Canonical state paths for the logical fields.
const (
	pathPower       = "/powerIsOn"
	pathVolume      = "/volume"
	pathMuted       = "/muted"
	pathInput       = "/input"
	pathInputs      = "/inputs"
	pathUpmix       = "/upmix"
	pathUpmixSelect = "/upmix/select"
	pathSerial      = "/versions/SerialNumber"
	pathCalVPH      = "/cal/vph"
	pathCalVPL      = "/cal/vpl"
)

// lookup resolves path with the open transaction's pending writes
// overlaying the mirrored state (read your own write).
func (c *Client) lookup(path string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.tx != nil {
		if value, ok := c.tx.pendingValue(path); ok {
			return value, nil
		}
	}
	return c.tree.Get(path)
}

// treeGet resolves path against the mirrored state only, ignoring any
// open transaction.
func (c *Client) treeGet(path string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Get(path)
}

// Volume returns the main volume in dB.
func (c *Client) Volume() (float64, error) {
	return c.lookupFloat(pathVolume)
}

// Muted returns whether the device is muted.
func (c *Client) Muted() (bool, error) {
	return c.lookupBool(pathMuted)
}

// Power returns the power state. known is false when the state is not
// synced or the device firmware does not expose the power node.
func (c *Client) Power() (on, known bool) {
	value, err := c.lookup(pathPower)
	if err != nil {
		return false, false
	}
	on, ok := value.(bool)
	return on, ok
}

// Input returns the human-readable label of the selected input.
func (c *Client) Input() (string, error) {
	value, err := c.lookup(pathInput)
	if err != nil {
		return "", err
	}
	id, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", pathInput, value)
	}

	label, err := c.treeGet(pathInputs + "/" + id + "/label")
	if err != nil {
		return "", err
	}
	text, ok := label.(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected label type %T", pathInputs, label)
	}
	return text, nil
}

// Inputs lists the labels of the device's visible inputs, sorted.
// Returns nil when no state is synced.
func (c *Client) Inputs() []string {
	value, err := c.treeGet(pathInputs)
	if err != nil {
		return nil
	}
	catalog, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	var labels []string
	for _, entry := range catalog {
		info, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if visible, _ := info["visible"].(bool); !visible {
			continue
		}
		if label, ok := info["label"].(string); ok {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Upmix returns the selected upmix (sound mode).
func (c *Client) Upmix() (string, error) {
	value, err := c.lookup(pathUpmixSelect)
	if err != nil {
		return "", err
	}
	name, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", pathUpmixSelect, value)
	}
	return name, nil
}

// Upmixes lists the upmixes visible on the device's home screen,
// sorted. Returns nil when no state is synced.
func (c *Client) Upmixes() []string {
	value, err := c.treeGet(pathUpmix)
	if err != nil {
		return nil
	}
	catalog, ok := value.(map[string]any)
	if !ok {
		return nil
	}

	var names []string
	for name, entry := range catalog {
		if name == "select" {
			continue
		}
		info, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if homevis, _ := info["homevis"].(bool); homevis {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SerialNumber returns the device's serial number.
func (c *Client) SerialNumber() (string, error) {
	value, err := c.treeGet(pathSerial)
	if err != nil {
		return "", err
	}
	serial, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", pathSerial, value)
	}
	return serial, nil
}

// CalVolumeMax returns the calibration maximum volume in dB.
func (c *Client) CalVolumeMax() (float64, error) {
	return c.treeFloat(pathCalVPH)
}

// CalVolumeMin returns the calibration minimum volume in dB.
func (c *Client) CalVolumeMin() (float64, error) {
	return c.treeFloat(pathCalVPL)
}

// SetVolume records a pending main volume change in dB.
func (tx *Tx) SetVolume(db float64) error {
	return tx.set(pathVolume, db)
}

// SetMuted records a pending mute change.
func (tx *Tx) SetMuted(muted bool) error {
	return tx.set(pathMuted, muted)
}

// SetPower records a pending power change.
func (tx *Tx) SetPower(on bool) error {
	return tx.set(pathPower, on)
}

// SetInput selects an input by its human-readable label. The label is
// resolved against the device's input catalog; an unknown label fails
// with ErrUnknownLabel and records nothing.
func (tx *Tx) SetInput(label string) error {
	value, err := tx.c.treeGet(pathInputs)
	if err != nil {
		return err
	}
	catalog, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("%s: unexpected type %T", pathInputs, value)
	}

	for id, entry := range catalog {
		info, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if info["label"] == label {
			return tx.set(pathInput, id)
		}
	}
	return fmt.Errorf("%w: input %q", ErrUnknownLabel, label)
}

// SetUpmix selects an upmix (sound mode) by name. The name is resolved
// against the device's upmix catalog; an unknown name fails with
// ErrUnknownLabel and records nothing.
func (tx *Tx) SetUpmix(name string) error {
	value, err := tx.c.treeGet(pathUpmix)
	if err != nil {
		return err
	}
	catalog, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("%s: unexpected type %T", pathUpmix, value)
	}

	if _, found := catalog[name]; !found || name == "select" {
		return fmt.Errorf("%w: upmix %q", ErrUnknownLabel, name)
	}
	return tx.set(pathUpmixSelect, name)
}

// lookupFloat resolves path (pending overlay included) as a float64.
func (c *Client) lookupFloat(path string) (float64, error) {
	value, err := c.lookup(path)
	if err != nil {
		return 0, err
	}
	return asFloat(path, value)
}

// lookupBool resolves path (pending overlay included) as a bool.
func (c *Client) lookupBool(path string) (bool, error) {
	value, err := c.lookup(path)
	if err != nil {
		return false, err
	}
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%s: unexpected type %T", path, value)
	}
	return b, nil
}

// treeFloat resolves path against the mirror only as a float64.
func (c *Client) treeFloat(path string) (float64, error) {
	value, err := c.treeGet(path)
	if err != nil {
		return 0, err
	}
	return asFloat(path, value)
}

// asFloat coerces a decoded JSON number. Pending writes store native
// Go numbers, so int sneaks in from callers as well.
func asFloat(path string, value any) (float64, error) {
	switch n := value.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%s: unexpected type %T", path, value)
	}
}
