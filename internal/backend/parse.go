package backend

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meltforce/treinos/internal/models"
)

// fixtureFields is the column count of a fixture line:
// grupo;exercicio;series;carga;intervalo
const fixtureFields = 5

// ErrEmptyFixture is returned when a file has no exercise lines.
var ErrEmptyFixture = errors.New("arquivo sem exercícios")

// ParseFixture reads the semicolon-separated fixture format, one exercise per
// line. Blank lines, '#' comments and a leading "grupo;..." header are
// skipped. Groups keep the order they first appear in.
func ParseFixture(r io.Reader) (models.Groups, []string, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	groups := models.Groups{}
	var order []string
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("arquivo inválido: %w", err)
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(rec[0]), "grupo") {
				continue
			}
		}
		line, _ := cr.FieldPos(0)
		if len(rec) != fixtureFields {
			return nil, nil, fmt.Errorf("linha %d: esperados %d campos, encontrados %d", line, fixtureFields, len(rec))
		}

		key := strings.TrimSpace(rec[0])
		if key == "" {
			return nil, nil, fmt.Errorf("linha %d: grupo vazio", line)
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], models.Exercise{
			Exercicio: strings.TrimSpace(rec[1]),
			Series:    strings.TrimSpace(rec[2]),
			Carga:     strings.TrimSpace(rec[3]),
			Intervalo: strings.TrimSpace(rec[4]),
		})
	}

	if len(order) == 0 {
		return nil, nil, ErrEmptyFixture
	}
	return groups, order, nil
}
