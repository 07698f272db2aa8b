package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// writeTarGz compresses dir into a gzipped tarball at path. Entries are
// prefixed with root so the archive unpacks into one directory.
func writeTarGz(path, dir, root string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", path, err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	return walkEntries(dir, root, func(entry string, info fs.FileInfo, src string) error {
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = entry
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
}

// writeZip compresses dir into a zip archive at path with entries under root.
func writeZip(path, dir, root string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", path, err)
	}
	defer file.Close()

	zw := zip.NewWriter(file)
	defer zw.Close()

	return walkEntries(dir, root, func(entry string, info fs.FileInfo, src string) error {
		if info.IsDir() {
			return nil
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = entry
		header.Method = zip.Deflate
		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(w, in)
		return err
	})
}

func walkEntries(dir, root string, visit func(entry string, info fs.FileInfo, src string) error) error {
	return filepath.WalkDir(dir, func(src string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, src)
		if err != nil {
			return err
		}
		entry := root
		if rel != "." {
			entry = filepath.ToSlash(filepath.Join(root, rel))
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.IsDir() {
			entry += "/"
		}
		return visit(entry, info, src)
	})
}
