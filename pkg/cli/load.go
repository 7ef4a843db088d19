package cli

import (
	"fmt"
	"path/filepath"

	urfave "github.com/urfave/cli/v2"

	"github.com/fleetsight/fleetsight/pkg/data"
	"github.com/fleetsight/fleetsight/pkg/engine"
)

var (
	loadFileFlag = &urfave.StringFlag{
		Name:     "file",
		Usage:    "Path to a carriers CSV file",
		Required: true,
	}

	sampleFileFlag = &urfave.StringFlag{
		Name:  "file",
		Usage: "Where to write the sample CSV",
		Value: "carriers_sample.csv",
	}

	sampleLoadFlag = &urfave.BoolFlag{
		Name:  "load",
		Usage: "Also load the sample rows into the database",
	}

	loadCmd = &urfave.Command{
		Name:            "load",
		Aliases:         []string{"l"},
		HideHelpCommand: true,
		Usage:           "Load carriers from a CSV file into the database",
		Action:          cmdLoad,
		Flags:           []urfave.Flag{loadFileFlag},
	}

	sampleCmd = &urfave.Command{
		Name:            "sample",
		HideHelpCommand: true,
		Usage:           "Write the deterministic sample dataset",
		Action:          cmdSample,
		Flags: []urfave.Flag{
			sampleFileFlag,
			sampleLoadFlag,
		},
	}
)

type loadResult struct {
	File     string `json:"file" yaml:"file"`
	Carriers int    `json:"carriers" yaml:"carriers"`
}

func cmdLoad(c *urfave.Context) error {
	file := c.String(loadFileFlag.Name)

	records, err := data.LoadCarriersCSV(file)
	if err != nil {
		return fmt.Errorf("loading carriers: %w", err)
	}

	cfg := getConfig(c)
	if err := data.SaveCarriers(cfg.DB, toCarriers(records)); err != nil {
		return fmt.Errorf("saving carriers: %w", err)
	}

	return encode(&loadResult{File: file, Carriers: len(records)})
}

func cmdSample(c *urfave.Context) error {
	file := c.String(sampleFileFlag.Name)
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}

	records := data.SampleCarriers()
	if err := data.WriteCarriersCSV(file, records); err != nil {
		return fmt.Errorf("writing sample: %w", err)
	}

	if c.Bool(sampleLoadFlag.Name) {
		cfg := getConfig(c)
		if err := data.SaveCarriers(cfg.DB, toCarriers(records)); err != nil {
			return fmt.Errorf("saving sample carriers: %w", err)
		}
	}

	return encode(&loadResult{File: file, Carriers: len(records)})
}

func toCarriers(records []engine.CarrierRecord) []*data.Carrier {
	list := make([]*data.Carrier, 0, len(records))
	for _, r := range records {
		list = append(list, &data.Carrier{
			CarrierID: r.CarrierID,
			LegalName: r.LegalName,
			DOT:       r.DOT,
			MC:        r.MC,
			Phone:     r.Phone,
			Email:     r.Email,
			Address:   r.Address,
			IP:        r.IP,
			Timestamp: r.Timestamp,
		})
	}
	return list
}
