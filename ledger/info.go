package ledger

import "sort"

// ChannelInfo summarizes one channel for the info surface
type ChannelInfo struct {
	ChainLength         int      `json:"chainLength"`
	IsChainValid        bool     `json:"isChainValid"`
	InstalledChaincodes []string `json:"installedChaincodes"`
}

// NetworkInfo summarizes the whole network
type NetworkInfo struct {
	Channels       []string                `json:"channels"`
	Chaincodes     []string                `json:"chaincodes"`
	Organizations  []string                `json:"organizations"`
	TotalUsers     int                     `json:"totalUsers"`
	ChannelDetails map[string]*ChannelInfo `json:"channelDetails"`
}

// Info returns a snapshot of the network: channel names, chaincode ids,
// organization names, user count and per-channel chain health
func (l *Ledger) Info() *NetworkInfo {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	info := &NetworkInfo{
		Channels:       make([]string, 0, len(l.channels)),
		Chaincodes:     make([]string, 0, len(l.chaincodes)),
		Organizations:  make([]string, 0, len(l.organizations)),
		TotalUsers:     len(l.users),
		ChannelDetails: make(map[string]*ChannelInfo, len(l.channels)),
	}

	for name, channel := range l.channels {
		info.Channels = append(info.Channels, name)
		info.ChannelDetails[name] = &ChannelInfo{
			ChainLength:         channel.chain.Length(),
			IsChainValid:        channel.chain.Validate(),
			InstalledChaincodes: channel.ChaincodeIDs(),
		}
	}
	for id := range l.chaincodes {
		info.Chaincodes = append(info.Chaincodes, id)
	}
	for _, org := range l.organizations {
		info.Organizations = append(info.Organizations, org.Name)
	}

	sort.Strings(info.Channels)
	sort.Strings(info.Chaincodes)
	sort.Strings(info.Organizations)
	return info
}

// ChannelBlocks returns the blocks of a channel in order
func (l *Ledger) ChannelBlocks(channelName string) ([]*Block, error) {
	channel, ok := l.Channel(channelName)
	if !ok {
		return nil, NotFoundf("channel '%s' not found", channelName)
	}
	return channel.chain.Blocks(), nil
}

// ValidateChannel recomputes every block hash and link of a channel's chain
func (l *Ledger) ValidateChannel(channelName string) (bool, error) {
	channel, ok := l.Channel(channelName)
	if !ok {
		return false, NotFoundf("channel '%s' not found", channelName)
	}
	return channel.chain.Validate(), nil
}

// Organizations returns all organizations sorted by name
func (l *Ledger) Organizations() []*Organization {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	orgs := make([]*Organization, 0, len(l.organizations))
	for _, org := range l.organizations {
		orgs = append(orgs, org)
	}
	sort.Slice(orgs, func(i, j int) bool {
		return orgs[i].Name < orgs[j].Name
	})
	return orgs
}
