package pipeline

import (
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	colors "gopkg.in/go-playground/colors.v1" //nolint
)

// plan is the execution graph of one run: a chain of stage vertices colored
// by kind, annotated after dispatch with per-stage elapsed time and exported
// as a DOT file.
type plan struct {
	dotFileName string
	graph       graph.Graph[string, string]
	last        string
}

func newPlan(dotFileName string) *plan {
	return &plan{
		dotFileName: dotFileName,
		graph:       graph.New(graph.StringHash, graph.Directed()),
	}
}

func (pl *plan) addStage(name string, kind StageKind) error {
	hex, err := kindColor(kind)
	if err != nil {
		return err
	}
	err = pl.graph.AddVertex(name,
		graph.VertexAttribute("shape", "box"),
		graph.VertexAttribute("color", hex),
	)
	if err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", name)
	}
	if pl.last != "" {
		if err := pl.graph.AddEdge(pl.last, name); err != nil {
			return errors.Wrapf(err, "unable to add edge from %s to %s", pl.last, name)
		}
	}
	pl.last = name
	return nil
}

func (pl *plan) setElapsed(name string, elapsed time.Duration) error {
	_, properties, err := pl.graph.VertexWithProperties(name)
	if err != nil {
		return errors.Wrap(err, "unable to get vertex properties")
	}
	properties.Attributes["xlabel"] = round(elapsed).String()
	return nil
}

func (pl *plan) write() error {
	file, err := os.Create(pl.dotFileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", pl.dotFileName)
	}
	defer file.Close()

	err = dot(pl.graph, file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", pl.dotFileName)
	}
	return nil
}

// kindColor maps a stage kind family to a vertex color.
func kindColor(kind StageKind) (string, error) {
	var red, green, blue uint8
	switch kind {
	case KindCheckFolder, KindReorganize:
		red, green, blue = 46, 139, 87
	case KindDCM2NII:
		red, green, blue = 70, 130, 180
	case KindSpatialResampling, KindIntensityResample, KindMergeMasks,
		KindMaskThresholding, KindWindowing, KindImageHarmonize,
		KindN4BiasCorrection:
		red, green, blue = 205, 133, 63
	case KindSegmentation:
		red, green, blue = 178, 34, 34
	case KindRadiomics, KindFeatureNormalize, KindFeatureHarmonize, KindPredict:
		red, green, blue = 147, 112, 219
	default:
		red, green, blue = 105, 105, 105
	}
	colour, err := colors.RGB(red, green, blue) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}
	return colour.ToHEX().String(), nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}"{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           interface{}
	Target           interface{}
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
}

func dot[K comparable, T any](gra graph.Graph[K, T], wrt io.Writer) error {
	desc, err := generateDOT(gra)
	if err != nil {
		return fmt.Errorf("failed to generate DOT description: %w", err)
	}

	return renderDOT(wrt, desc)
}

func generateDOT[K comparable, T any](gra graph.Graph[K, T]) (description, error) {
	desc := description{
		GraphType:    "graph",
		EdgeOperator: "--",
		Statements:   make([]statement, 0),
	}

	if gra.Traits().IsDirected {
		desc.GraphType = "digraph"
		desc.EdgeOperator = "->"
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	for vertex, adjacencies := range adjacencyMap {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		htmlAttributes := make(map[string]string)

		if xlabel, ok := sourceProperties.Attributes["xlabel"]; ok {
			htmlAttributes["label"] = fmt.Sprintf(`<%+v <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, xlabel)

			delete(sourceProperties.Attributes, "xlabel")
		}

		stmt := statement{
			Source:           vertex,
			SourceAttributes: sourceProperties.Attributes,
			HTMLAttributes:   htmlAttributes,
		}
		desc.Statements = append(desc.Statements, stmt)

		for adjacency := range adjacencies {
			stmt := statement{
				Source: vertex,
				Target: adjacency,
			}
			desc.Statements = append(desc.Statements, stmt)
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}
