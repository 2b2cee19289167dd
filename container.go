package jarir

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

// containerXML models the META-INF/container.xml file used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"urn:oasis:names:tc:opendocument:xmlns:container container"`
	Version   string     `xml:"version,attr,omitempty"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

const (
	// containerPath is the well-known location of container.xml in an ePub archive.
	containerPath = "META-INF/container.xml"
	opfMediaType  = "application/oebps-package+xml"
)

// buildContainer renders container.xml pointing at opfPath.
func buildContainer(opfPath string) ([]byte, error) {
	c := containerXML{
		Version:   "1.0",
		RootFiles: []rootFile{{FullPath: opfPath, MediaType: opfMediaType}},
	}
	out, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("jarir: encode container.xml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// parseContainer reads container.xml from an EPUB and returns the OPF path.
func parseContainer(zr *zip.Reader) (string, error) {
	f := findFile(zr, containerPath)
	if f == nil {
		return "", fmt.Errorf("jarir: %s: %w: %w", containerPath, ErrArchiveFormat, ErrEntryNotFound)
	}
	data, err := readZipFile(f)
	if err != nil {
		return "", err
	}

	var c containerXML
	if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
		return "", fmt.Errorf("jarir: parse container.xml: %w: %w", ErrArchiveFormat, err)
	}

	var fallbackPath string
	for _, rf := range c.RootFiles {
		fullPath := strings.TrimSpace(rf.FullPath)
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), opfMediaType) {
			return fullPath, nil
		}
		if fallbackPath == "" {
			fallbackPath = fullPath
		}
	}
	if fallbackPath == "" {
		return "", fmt.Errorf("jarir: container.xml has no rootfile: %w", ErrArchiveFormat)
	}
	return fallbackPath, nil
}
