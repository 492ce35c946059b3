package ledger

import (
	"github.com/ddr4869/fabricsim/common/logger"
	"github.com/ddr4869/fabricsim/common/netconfig"
)

// Bootstrap seeds the ledger from a network profile: organizations first,
// then channels, then chaincodes (so they attach to every channel), then
// users
func (l *Ledger) Bootstrap(profile *netconfig.NetworkProfile) {
	logger.Info("Starting network bootstrap process")

	for _, org := range profile.Organizations {
		l.CreateOrganization(org.Name, org.Domain)
	}

	for _, channel := range profile.Channels {
		l.CreateChannel(channel.Name, channel.Organizations)
	}

	for _, chaincode := range profile.Chaincodes {
		l.InstallChaincode(chaincode.Name, chaincode.Version, chaincode.Organizations)
	}

	for _, user := range profile.Users {
		l.CreateUser(user.Username, user.Password, user.Organization, user.Roles)
	}

	info := l.Info()
	logger.Info("🏗️  Fabric-inspired network initialized")
	logger.Infof("   - Channels: %v", info.Channels)
	logger.Infof("   - Organizations: %v", info.Organizations)
	logger.Infof("   - Chaincodes: %v", info.Chaincodes)
	logger.Infof("   - Total Users: %d", info.TotalUsers)
}
