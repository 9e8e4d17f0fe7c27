// internal/output/formatter.go - Decoded feature formatting for the CLI
package output

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"maptile-reader/internal"
	"maptile-reader/pkg/feature"
)

// Supported output formats.
const (
	FormatGeoJSON = "geojson"
	FormatJSON    = "json"
)

// Formatter renders decoded features for tool output.
type Formatter struct {
	format string
	pretty bool
}

// NewFormatter creates a formatter for the given format name.
func NewFormatter(format string, pretty bool) (*Formatter, error) {
	switch format {
	case FormatGeoJSON, FormatJSON:
		return &Formatter{format: format, pretty: pretty}, nil
	default:
		return nil, internal.NewError(internal.ErrorCodeValidation,
			fmt.Sprintf("unsupported output format %q", format), nil)
	}
}

// Format renders the features decoded at the given scale.
func (f *Formatter) Format(features []*feature.Feature, scale int) ([]byte, error) {
	switch f.format {
	case FormatGeoJSON:
		return f.formatGeoJSON(features, scale)
	default:
		return f.formatJSON(features, scale)
	}
}

func (f *Formatter) formatGeoJSON(features []*feature.Feature, scale int) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, ft := range features {
		geom, err := featureGeometry(ft, scale)
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeDecode, "feature geometry failed", err)
		}
		gf := geojson.NewFeature(geom)
		gf.ID = ft.ID()
		if err := fillProperties(gf.Properties, ft); err != nil {
			return nil, internal.NewError(internal.ErrorCodeDecode, "feature properties failed", err)
		}
		fc.Append(gf)
	}
	if f.pretty {
		return json.MarshalIndent(fc, "", "  ")
	}
	return fc.MarshalJSON()
}

type featureSummary struct {
	ID     uint32   `json:"id"`
	Geom   string   `json:"geom"`
	Types  []uint32 `json:"types"`
	Name   string   `json:"name,omitempty"`
	House  string   `json:"house,omitempty"`
	Ref    string   `json:"ref,omitempty"`
	Layer  int8     `json:"layer,omitempty"`
	Rank   uint8    `json:"rank,omitempty"`
	Points int      `json:"points"`
}

func (f *Formatter) formatJSON(features []*feature.Feature, scale int) ([]byte, error) {
	summaries := make([]featureSummary, 0, len(features))
	for _, ft := range features {
		if err := ft.ParseGeometryAndTriangles(scale); err != nil {
			return nil, internal.NewError(internal.ErrorCodeDecode, "feature decoding failed", err)
		}
		types, err := ft.Types()
		if err != nil {
			return nil, internal.NewError(internal.ErrorCodeDecode, "feature types failed", err)
		}
		name, _ := ft.ReadableName()
		house, _ := ft.HouseNumber()
		ref, _ := ft.RoadNumber()
		layer, _ := ft.Layer()
		rank, _ := ft.Rank()
		points := ft.PointsCount()
		if ft.GeomType() == feature.GeomArea {
			strip, _ := ft.TrianglesAsPoints(scale)
			points = len(strip)
		}
		summaries = append(summaries, featureSummary{
			ID:     ft.ID(),
			Geom:   ft.GeomType().String(),
			Types:  types,
			Name:   name,
			House:  house,
			Ref:    ref,
			Layer:  layer,
			Rank:   rank,
			Points: points,
		})
	}
	if f.pretty {
		return json.MarshalIndent(summaries, "", "  ")
	}
	return json.Marshal(summaries)
}

// featureGeometry maps a decoded feature onto an orb geometry: Point
// center, Line polyline, or the triangle strip unpacked into a
// MultiPolygon.
func featureGeometry(ft *feature.Feature, scale int) (orb.Geometry, error) {
	if err := ft.ParseGeometryAndTriangles(scale); err != nil {
		return nil, err
	}

	switch ft.GeomType() {
	case feature.GeomPoint:
		center, err := ft.Center()
		if err != nil {
			return nil, err
		}
		return center, nil

	case feature.GeomLine:
		return orb.LineString(ft.Points()), nil

	default:
		strip, err := ft.TrianglesAsPoints(scale)
		if err != nil {
			return nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(strip))
		for i := 0; i+2 < len(strip); i++ {
			ring := orb.Ring{strip[i], strip[i+1], strip[i+2], strip[i]}
			mp = append(mp, orb.Polygon{ring})
		}
		return mp, nil
	}
}

func fillProperties(props geojson.Properties, ft *feature.Feature) error {
	types, err := ft.Types()
	if err != nil {
		return err
	}
	props["types"] = types

	if name, err := ft.ReadableName(); err == nil && name != "" {
		props["name"] = name
	}
	if house, err := ft.HouseNumber(); err == nil && house != "" {
		props["house"] = house
	}
	if ref, err := ft.RoadNumber(); err == nil && ref != "" {
		props["ref"] = ref
	}
	if layer, err := ft.Layer(); err == nil && layer != 0 {
		props["layer"] = layer
	}
	if rank, err := ft.Rank(); err == nil && rank != 0 {
		props["rank"] = rank
	}
	return nil
}
