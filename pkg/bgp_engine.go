package pkg

import (
	"context"
	"errors"
	"fmt"

	api "github.com/osrg/gobgp/v3/api"
	"github.com/osrg/gobgp/v3/pkg/server"
	log "github.com/sirupsen/logrus"

	"ris_live/pkg/rislive"
)

// BGPService mirrors the decoded stream into the global RIB of an embedded BGP
// speaker, which advertises it to any configured neighbor. Every path is injected
// locally, so the RIB keeps the latest announcement seen for each prefix.
type BGPService struct {
	server  *server.BgpServer // The main BGP server instance
	context context.Context   // Context for managing BGP operations
	metrics *Metrics          // Optional, counts RIB writes
}

// NewBGPService creates and initializes a new BGP service
func NewBGPService() *BGPService {
	return &BGPService{
		server:  server.NewBgpServer(),
		context: context.Background(),
	}
}

// WithMetrics makes Apply count its writes
func (s *BGPService) WithMetrics(m *Metrics) *BGPService {
	s.metrics = m
	return s
}

// Start initializes and starts the BGP server with the given router ID and ASN.
// A negative listenPort disables the listener.
func (s *BGPService) Start(routerId string, asn uint32, listenPort int32) error {
	// Start the BGP server in a separate goroutine
	go s.server.Serve()

	// Configure and start the BGP process with global parameters
	if err := s.server.StartBgp(s.context, &api.StartBgpRequest{
		Global: &api.Global{
			Asn:        asn,
			RouterId:   routerId,
			ListenPort: listenPort,
		},
	}); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"routerId": routerId,
		"asn":      asn,
		"port":     listenPort,
	}).Info("BGP speaker started")
	return nil
}

// AddNeighbor configures a new BGP peer with the specified address and ASN
func (s *BGPService) AddNeighbor(neighborAddress string, neighborAsn uint32) error {
	n := &api.Peer{
		Conf: &api.PeerConf{
			NeighborAddress: neighborAddress,
			PeerAsn:         neighborAsn,
		},
	}

	return s.server.AddPeer(s.context, &api.AddPeerRequest{
		Peer: n,
	})
}

// Apply writes decoded elements into the global RIB: announcements are added and
// withdrawals delete the prefix. Every element is attempted; failures are joined.
func (s *BGPService) Apply(elems []rislive.RoutingElement) error {
	var errs []error
	for _, e := range elems {
		err := s.apply(e)
		if s.metrics != nil {
			s.metrics.ObserveRIB(err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", e.Type, e.Prefix, err))
		}
	}
	return errors.Join(errs...)
}

func (s *BGPService) apply(e rislive.RoutingElement) error {
	path, err := NewPathFromElement(e)
	if err != nil {
		return err
	}
	if e.Type == rislive.Withdraw {
		return s.server.DeletePath(s.context, &api.DeletePathRequest{
			TableType: api.TableType_GLOBAL,
			Family:    path.Family,
			Path:      path,
		})
	}
	_, err = s.server.AddPath(s.context, &api.AddPathRequest{
		TableType: api.TableType_GLOBAL,
		Path:      path,
	})
	return err
}

// Prefixes lists the prefixes currently held in the global RIB for both unicast
// families
func (s *BGPService) Prefixes() ([]string, error) {
	var prefixes []string
	for _, afi := range []api.Family_Afi{api.Family_AFI_IP, api.Family_AFI_IP6} {
		err := s.server.ListPath(s.context, &api.ListPathRequest{
			TableType: api.TableType_GLOBAL,
			Family:    &api.Family{Afi: afi, Safi: api.Family_SAFI_UNICAST},
		}, func(d *api.Destination) {
			prefixes = append(prefixes, d.Prefix)
		})
		if err != nil {
			return nil, err
		}
	}
	return prefixes, nil
}

// MonitorPrefixes sets up a watch for best path changes and logs them
func (s *BGPService) MonitorPrefixes() {
	err := s.server.WatchEvent(s.context, &api.WatchEventRequest{
		Table: &api.WatchEventRequest_Table{
			Filters: []*api.WatchEventRequest_Table_Filter{
				{
					Type: api.WatchEventRequest_Table_Filter_BEST,
				},
			},
		},
	}, func(r *api.WatchEventResponse) {
		if table := r.GetTable(); table != nil {
			for _, path := range table.Paths {
				if nlri := path.GetNlri(); nlri != nil {
					log.WithFields(log.Fields{
						"nlri":     nlri.String(),
						"withdraw": path.GetIsWithdraw(),
					}).Debug("Best path changed")
				}
			}
		}
	})

	if err != nil {
		log.WithError(err).Error("Error watching events")
	}
}

// Stop gracefully shuts down the BGP server
func (s *BGPService) Stop() {
	s.server.Stop()
}
