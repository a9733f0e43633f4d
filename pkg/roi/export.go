package roi

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/matzehuels/blobstack/pkg/errors"
)

// FileName returns the file name of the i-th ROI of a set.
func FileName(i int) string {
	return fmt.Sprintf("roi_%04d.roi", i)
}

// ExportSet writes every contour to root/setName/roi_NNNN.roi and archives
// the directory as root/setName.zip. It returns the zip path.
//
// root is created when missing. The set directory and the zip must not
// exist; existing output is never overwritten and yields OUTPUT_EXISTS.
func ExportSet(root, setName string, contours []Contour) (string, error) {
	if err := errors.ValidateName(setName); err != nil {
		return "", err
	}
	dir := filepath.Join(root, setName)
	zipPath := dir + ".zip"
	for _, p := range []string{dir, zipPath} {
		if _, err := os.Lstat(p); err == nil {
			return "", errors.New(errors.ErrCodeOutputExists, "%s already exists", p)
		}
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", root, err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return "", errors.Wrap(errors.ErrCodeOutputExists, err, "%s already exists", dir)
		}
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	for i, c := range contours {
		if err := writeROI(filepath.Join(dir, FileName(i)), c); err != nil {
			return "", err
		}
	}
	if err := archive(zipPath, dir); err != nil {
		return "", err
	}
	return zipPath, nil
}

func writeROI(path string, c Contour) error {
	var buf bytes.Buffer
	if err := Encode(&buf, c, c.Name()); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// archive zips the regular files of dir, without a directory prefix, into
// zipPath.
func archive(zipPath, dir string) (err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(zipPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrap(errors.ErrCodeOutputExists, err, "%s already exists", zipPath)
		}
		return fmt.Errorf("create %s: %w", zipPath, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := addFile(zw, filepath.Join(dir, e.Name()), e.Name()); err != nil {
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	_, err = io.Copy(w, src)
	return err
}

// ReadSet decodes every ".roi" entry of a zip written by [ExportSet], in
// file name order.
func ReadSet(zipPath string) ([]*ROI, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "roi set %s", zipPath)
		}
		return nil, fmt.Errorf("open %s: %w", zipPath, err)
	}
	defer zr.Close()

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".roi") {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	out := make([]*ROI, 0, len(files))
	for _, f := range files {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		roi, err := Decode(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}
		out = append(out, roi)
	}
	return out, nil
}
