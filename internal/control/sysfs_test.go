package control

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sensor_events/internal/event"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func readAttr(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestSysfs_SetEnabled(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, AttrEnable))
	s := Sysfs{Dir: dir}

	require.NoError(t, s.SetEnabled(event.Accelerometer, true))
	assert.Equal(t, "1\x00", readAttr(t, filepath.Join(dir, AttrEnable)))

	require.NoError(t, s.SetEnabled(event.Accelerometer, false))
	assert.Equal(t, "0\x00", readAttr(t, filepath.Join(dir, AttrEnable)))
}

func TestSysfs_SetDelay(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, AttrPollDelay))
	s := Sysfs{Dir: dir}

	require.NoError(t, s.SetDelay(event.Accelerometer, 200))
	assert.Equal(t, "200\x00", readAttr(t, filepath.Join(dir, AttrPollDelay)))
}

func TestSysfs_SetDelayFallsBackToPoll(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, AttrPoll))
	s := Sysfs{Dir: dir}

	require.NoError(t, s.SetDelay(event.Accelerometer, 66))
	assert.Equal(t, "66\x00", readAttr(t, filepath.Join(dir, AttrPoll)))
	assert.NoFileExists(t, filepath.Join(dir, AttrPollDelay))
}

func TestSysfs_PerSensor(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "gyroscope", AttrEnable))
	s := Sysfs{Dir: dir, PerSensor: true}

	require.NoError(t, s.SetEnabled(event.Gyroscope, true))
	assert.Equal(t, "1\x00", readAttr(t, filepath.Join(dir, "gyroscope", AttrEnable)))

	err := s.SetEnabled(event.Accelerometer, true)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSysfs_MissingAttribute(t *testing.T) {
	s := Sysfs{Dir: t.TempDir()}

	assert.ErrorIs(t, s.SetEnabled(event.Accelerometer, true), fs.ErrNotExist)
	assert.ErrorIs(t, s.SetDelay(event.Accelerometer, 10), fs.ErrNotExist)
}

func TestNone(t *testing.T) {
	var c None
	assert.NoError(t, c.SetEnabled(event.Light, true))
	assert.NoError(t, c.SetDelay(event.Light, 5))
}
