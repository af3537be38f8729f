// Package registry is the one piece of host-adjacent glue retrocore
// owns: reading a ROM file's bytes, unwrapping the zip archives the
// retro scene commonly ships them in, sniffing the file extension to
// pick a console package, and handing back a ready core.System.
// Per-format header parsing stays in each console package
// (cartridge.New in nes/cartridge, ...); registry never looks inside the ROM bytes
// themselves beyond what's needed to find them inside an archive.
package registry

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	kzip "github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"retrocore/core"
	"retrocore/nes"
)

func init() {
	// Use klauspost/compress's flate implementation for zip's DEFLATE
	// method instead of the stdlib's, the way rom-tools' chd codec
	// reaches for klauspost/compress over the standard library
	// decompressors.
	zip.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return kzip.NewReader(r)
	})
}

// Constructor builds a fresh, unloaded core.System for one console
// family. Registered per recognized file extension below.
type Constructor func() core.System

var constructors = map[string]Constructor{
	".nes": func() core.System { return nes.New() },
}

// RegisterConstructor lets a host or test register a system for an
// extension not built in below (or override one), without reaching
// into this package's internals.
func RegisterConstructor(ext string, c Constructor) {
	constructors[strings.ToLower(ext)] = c
}

// Load reads path, transparently unwrapping a single level of zip
// archive, and returns a core.System with the ROM already loaded via
// LoadROM.
func Load(path string) (core.System, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.LoadError{Path: path, Reason: err.Error()}
	}

	name := path
	data := raw
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		innerName, inner, err := unwrapZip(raw)
		if err != nil {
			return nil, &core.LoadError{Path: path, Reason: err.Error()}
		}
		name = innerName
		data = inner
	}

	ctor, ok := constructors[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return nil, &core.LoadError{Path: path, Reason: fmt.Sprintf("no system registered for extension %q", filepath.Ext(name))}
	}

	sys := ctor()
	if err := sys.LoadROM(name, data); err != nil {
		return nil, err
	}
	return sys, nil
}

// SaveStateToFile gzip-compresses a save-state stream (as returned by
// core.System.GetState) and writes it to path. Compression lives
// outside the (key,bytes) stream contract, so a plain, uncompressed
// GetState() result is also a valid input here.
func SaveStateToFile(path string, state []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if _, err := gw.Write(state); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

// LoadStateFromFile reverses SaveStateToFile, returning bytes ready
// for core.System.SetState.
func LoadStateFromFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("not a gzip-compressed save state: %w", err)
	}
	defer gr.Close()

	return io.ReadAll(gr)
}

// unwrapZip returns the name and bytes of the first archive member
// whose extension registry recognizes. Archives packaging more than
// one recognized ROM (a multi-disk set, a ROM plus its manual scan)
// are a documented Non-goal: only the first match is used.
func unwrapZip(raw []byte) (string, []byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", nil, fmt.Errorf("not a valid zip archive: %w", err)
	}

	for _, f := range zr.File {
		if _, ok := constructors[strings.ToLower(filepath.Ext(f.Name))]; !ok {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", nil, fmt.Errorf("opening %q: %w", f.Name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", nil, fmt.Errorf("reading %q: %w", f.Name, err)
		}
		return f.Name, data, nil
	}

	return "", nil, fmt.Errorf("zip archive has no recognized ROM")
}
