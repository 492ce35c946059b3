package netconfig

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NetworkProfile represents the structure of a network bootstrap profile
// (network.yaml). It declares the organizations, channels, chaincodes and
// users the ledger is seeded with at startup.
type NetworkProfile struct {
	Organizations []Organization `yaml:"Organizations"`
	Channels      []Channel      `yaml:"Channels"`
	Chaincodes    []Chaincode    `yaml:"Chaincodes"`
	Users         []User         `yaml:"Users"`
}

// Organization represents an organization declaration
type Organization struct {
	Name   string `yaml:"Name"`
	Domain string `yaml:"Domain"`
}

// Channel represents a channel declaration
type Channel struct {
	Name          string   `yaml:"Name"`
	Organizations []string `yaml:"Organizations"`
}

// Chaincode represents a chaincode declaration
type Chaincode struct {
	Name          string   `yaml:"Name"`
	Version       string   `yaml:"Version"`
	Organizations []string `yaml:"Organizations"`
}

// User represents a user declaration
type User struct {
	Username     string   `yaml:"Username"`
	Password     string   `yaml:"Password"`
	Organization string   `yaml:"Organization"`
	Roles        []string `yaml:"Roles"`
}

// ParseProfile parses a network.yaml profile file
func ParseProfile(filePath string) (*NetworkProfile, error) {
	if filePath == "" {
		return nil, errors.New("file path cannot be empty")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read network profile")
	}

	var profile NetworkProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, errors.Wrap(err, "failed to parse network profile YAML")
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}

	return &profile, nil
}

// DefaultProfile returns the built-in demo network: four organizations, one
// channel, the document-registry chaincode and four users
func DefaultProfile() *NetworkProfile {
	return &NetworkProfile{
		Organizations: []Organization{
			{Name: "Org1", Domain: "healthcare"},
			{Name: "Org2", Domain: "agriculture"},
			{Name: "Org3", Domain: "finance"},
			{Name: "OrgAdmin", Domain: "admin"},
		},
		Channels: []Channel{
			{Name: "mychannel", Organizations: []string{"Org1", "Org2", "Org3", "OrgAdmin"}},
		},
		Chaincodes: []Chaincode{
			{Name: "document-registry", Version: "1.0", Organizations: []string{"Org1", "Org2", "Org3"}},
		},
		Users: []User{
			{Username: "admin", Password: "admin123", Organization: "OrgAdmin", Roles: []string{"ADMIN"}},
			{Username: "healthcare_user", Password: "health123", Organization: "Org1", Roles: []string{"HEALTHCARE_ROLE"}},
			{Username: "agriculture_user", Password: "agri123", Organization: "Org2", Roles: []string{"AGRICULTURE_ROLE"}},
			{Username: "finance_user", Password: "finance123", Organization: "Org3", Roles: []string{"FINANCE_ROLE"}},
		},
	}
}

// Validate checks the profile for declarations that cannot be applied
func (p *NetworkProfile) Validate() error {
	for _, org := range p.Organizations {
		if org.Name == "" {
			return errors.New("organization with empty name in profile")
		}
	}

	for _, ch := range p.Channels {
		if ch.Name == "" {
			return errors.New("channel with empty name in profile")
		}
		if len(ch.Organizations) == 0 {
			return errors.Errorf("channel %s declares no organizations", ch.Name)
		}
	}

	for _, cc := range p.Chaincodes {
		if cc.Name == "" || cc.Version == "" {
			return errors.New("chaincode declarations require Name and Version")
		}
	}

	for _, user := range p.Users {
		if user.Username == "" || user.Password == "" {
			return errors.New("user declarations require Username and Password")
		}
	}

	return nil
}
