// Package discovery resolves service addresses through Consul, with a
// static-address fallback so a local run works without an agent.
package discovery

import (
	"fmt"
	"net"

	"github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

type Consul struct {
	client *api.Client
	log    *zap.Logger
}

type ServiceConfig struct {
	Name string
	ID   string
	Port int
	Tags []string
}

func NewConsul(addr string, log *zap.Logger) (*Consul, error) {
	cfg := api.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	if _, err := client.Agent().Self(); err != nil {
		return nil, fmt.Errorf("consul agent: %w", err)
	}
	return &Consul{client: client, log: log}, nil
}

func outboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func (c *Consul) Register(cfg ServiceConfig) error {
	host := outboundIP()
	reg := &api.AgentServiceRegistration{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Port:    cfg.Port,
		Address: host,
		Tags:    cfg.Tags,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/healthz", host, cfg.Port),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
	}
	if err := c.client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("register %s: %w", cfg.Name, err)
	}
	c.log.Info("registered service", zap.String("name", cfg.Name), zap.String("id", cfg.ID), zap.Int("port", cfg.Port))
	return nil
}

func (c *Consul) Deregister(serviceID string) error {
	if err := c.client.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("deregister %s: %w", serviceID, err)
	}
	return nil
}

// ServiceURL returns the URL of one healthy instance.
func (c *Consul) ServiceURL(name string) (string, error) {
	entries, _, err := c.client.Health().Service(name, "", true, nil)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", name, err)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("no healthy instances of %s", name)
	}
	svc := entries[0].Service
	addr := svc.Address
	if addr == "" {
		addr = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", addr, svc.Port), nil
}
