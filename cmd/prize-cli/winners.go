package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"prizepool/crypto"
)

// winnersFile is the YAML document accepted by game set-winners:
//
//	winners:
//	  - address: prize1...
//	    amount: 100
type winnersFile struct {
	Winners []struct {
		Address string `yaml:"address"`
		Amount  uint64 `yaml:"amount"`
	} `yaml:"winners"`
}

func loadWinners(path string) ([]crypto.Address, []uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var doc winnersFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	winners := make([]crypto.Address, 0, len(doc.Winners))
	amounts := make([]uint64, 0, len(doc.Winners))
	for i, entry := range doc.Winners {
		addr, err := crypto.DecodeAddress(entry.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("winner %d: %w", i, err)
		}
		winners = append(winners, addr)
		amounts = append(amounts, entry.Amount)
	}
	return winners, amounts, nil
}
