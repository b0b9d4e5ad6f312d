// Package stack holds the declarative model of the network topology: one
// VPC with role-based subnets, one security group, one EC2 instance and the
// stack's output bindings. A Stack is a plain value built and validated by
// New; it carries no AWS state and is never mutated after construction.
package stack

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/nasir19noor/aws-cdk/errors"
)

// SubnetRole determines how a subnet group is routed.
type SubnetRole string

const (
	// RolePublic subnets route 0.0.0.0/0 through an internet gateway and
	// map public IPs on launch.
	RolePublic SubnetRole = "public"
	// RolePrivateWithEgress subnets route 0.0.0.0/0 through a NAT gateway,
	// outbound only.
	RolePrivateWithEgress SubnetRole = "private-with-egress"
)

// SubnetConfiguration declares one subnet group; the builder expands it into
// one subnet per availability zone.
type SubnetConfiguration struct {
	Name     string
	Role     SubnetRole
	CidrMask int
}

// NetworkSpec declares the VPC address space and subnet layout.
type NetworkSpec struct {
	CidrBlock          string
	MaxAZs             int
	EnableDnsSupport   bool
	EnableDnsHostnames bool
	Subnets            []SubnetConfiguration
}

// IngressRule is one inbound permission on the security group.
type IngressRule struct {
	CidrIP      string
	Protocol    string
	Port        int32
	Description string
}

// SecurityGroupSpec declares the instance's security group. Outbound traffic
// is always unrestricted; no egress rules are declared.
type SecurityGroupSpec struct {
	Description      string
	AllowAllOutbound bool
	Ingress          []IngressRule
}

// MachineImageSpec selects a machine image from the provider catalog. The
// lookup resolves at apply time, so the image ID may differ between runs.
type MachineImageSpec struct {
	Distribution   string
	Edition        string
	Virtualization string
	Storage        string
}

// InstanceSpec declares the single EC2 instance. KeyName must reference a
// key pair that already exists in the target account and region.
type InstanceSpec struct {
	InstanceType string
	KeyName      string
	BootScript   BootScript
}

// OutputSource identifies which resolved attribute an output binding reads.
type OutputSource string

const (
	SourceVPCID             OutputSource = "vpc_id"
	SourceInternetGatewayID OutputSource = "internet_gateway_id"
	SourcePublicSubnetID    OutputSource = "public_subnet_id"
	SourceSecurityGroupID   OutputSource = "security_group_id"
	SourceInstanceID        OutputSource = "instance_id"
	SourceInstancePublicIP  OutputSource = "instance_public_ip"
	SourceInstancePublicDNS OutputSource = "instance_public_dns"
)

// OutputBinding names one value exposed after a successful apply.
type OutputBinding struct {
	Name        string
	Source      OutputSource
	Description string
}

// SubnetPlan is one concrete subnet derived from a SubnetConfiguration:
// a /mask block carved from the VPC range, pinned to one AZ index.
type SubnetPlan struct {
	Name      string
	Role      SubnetRole
	AZIndex   int
	CidrBlock string
}

// Stack is a validated declaration ready for the provisioner.
type Stack struct {
	Name          string
	Network       NetworkSpec
	SecurityGroup SecurityGroupSpec
	Image         MachineImageSpec
	Instance      InstanceSpec
	Outputs       []OutputBinding
	SubnetPlans   []SubnetPlan
}

// New validates the declaration and computes the subnet plans. Every
// validation failure is reported before any provider API is touched.
func New(name string, network NetworkSpec, sg SecurityGroupSpec, image MachineImageSpec, instance InstanceSpec, outputs []OutputBinding) (*Stack, error) {
	if name == "" {
		return nil, errors.New(errors.ErrStackInvalid, "stack name must not be empty", nil, nil)
	}

	if network.MaxAZs < 1 {
		return nil, errors.New(errors.ErrStackInvalid, "network must span at least one availability zone",
			map[string]interface{}{
				"max_azs": network.MaxAZs,
			}, nil)
	}

	if len(network.Subnets) == 0 {
		return nil, errors.New(errors.ErrStackInvalid, "network declares no subnet configurations", nil, nil)
	}

	for _, cfg := range network.Subnets {
		if cfg.Role != RolePublic && cfg.Role != RolePrivateWithEgress {
			return nil, errors.New(errors.ErrStackInvalid, "unknown subnet role",
				map[string]interface{}{
					"subnet": cfg.Name,
					"role":   string(cfg.Role),
				}, nil)
		}
	}

	plans, err := planSubnets(network)
	if err != nil {
		return nil, err
	}

	for _, rule := range sg.Ingress {
		if _, _, err := net.ParseCIDR(rule.CidrIP); err != nil {
			return nil, errors.New(errors.ErrStackInvalid, "invalid ingress source CIDR",
				map[string]interface{}{
					"cidr": rule.CidrIP,
					"port": rule.Port,
				}, err)
		}
	}

	if instance.InstanceType == "" {
		return nil, errors.New(errors.ErrStackInvalid, "instance type must not be empty", nil, nil)
	}
	if instance.KeyName == "" {
		return nil, errors.New(errors.ErrStackInvalid, "instance key pair name must not be empty", nil, nil)
	}

	seen := make(map[string]bool)
	for _, out := range outputs {
		if out.Name == "" {
			return nil, errors.New(errors.ErrStackInvalid, "output binding with empty name", nil, nil)
		}
		if seen[out.Name] {
			return nil, errors.New(errors.ErrStackInvalid, "duplicate output name",
				map[string]interface{}{
					"output": out.Name,
				}, nil)
		}
		seen[out.Name] = true
	}

	return &Stack{
		Name:          name,
		Network:       network,
		SecurityGroup: sg,
		Image:         image,
		Instance:      instance,
		Outputs:       outputs,
		SubnetPlans:   plans,
	}, nil
}

// PublicSubnets returns the plans with the public role, in plan order.
func (s *Stack) PublicSubnets() []SubnetPlan {
	return s.subnetsByRole(RolePublic)
}

// PrivateSubnets returns the plans with the private-with-egress role.
func (s *Stack) PrivateSubnets() []SubnetPlan {
	return s.subnetsByRole(RolePrivateWithEgress)
}

func (s *Stack) subnetsByRole(role SubnetRole) []SubnetPlan {
	result := make([]SubnetPlan, 0)
	for _, plan := range s.SubnetPlans {
		if plan.Role == role {
			result = append(result, plan)
		}
	}
	return result
}

// planSubnets carves one subnet per (configuration, AZ) pair out of the VPC
// block, allocating sequentially so ranges cannot overlap. Order matches the
// declaration: all subnets of the first configuration, AZ by AZ, then the
// next configuration.
func planSubnets(network NetworkSpec) ([]SubnetPlan, error) {
	_, vpcNet, err := net.ParseCIDR(network.CidrBlock)
	if err != nil {
		return nil, errors.New(errors.ErrStackInvalid, "invalid VPC CIDR block",
			map[string]interface{}{
				"cidr": network.CidrBlock,
			}, err)
	}

	vpcOnes, bits := vpcNet.Mask.Size()
	if bits != 32 {
		return nil, errors.New(errors.ErrStackInvalid, "VPC CIDR block must be IPv4",
			map[string]interface{}{
				"cidr": network.CidrBlock,
			}, nil)
	}

	cursor := binary.BigEndian.Uint32(vpcNet.IP.To4())
	vpcEnd := cursor + (uint32(1) << (32 - vpcOnes))

	var plans []SubnetPlan
	for _, cfg := range network.Subnets {
		if cfg.CidrMask <= vpcOnes || cfg.CidrMask > 30 {
			return nil, errors.New(errors.ErrStackInvalid, "subnet mask does not fit the VPC block",
				map[string]interface{}{
					"subnet":    cfg.Name,
					"cidr_mask": cfg.CidrMask,
					"vpc_mask":  vpcOnes,
				}, nil)
		}
		size := uint32(1) << (32 - cfg.CidrMask)
		for az := 0; az < network.MaxAZs; az++ {
			if cursor+size > vpcEnd {
				return nil, errors.New(errors.ErrStackInvalid, "VPC block exhausted while planning subnets",
					map[string]interface{}{
						"subnet": cfg.Name,
						"az":     az,
					}, nil)
			}
			ip := make(net.IP, 4)
			binary.BigEndian.PutUint32(ip, cursor)
			plans = append(plans, SubnetPlan{
				Name:      fmt.Sprintf("%s%d", cfg.Name, az+1),
				Role:      cfg.Role,
				AZIndex:   az,
				CidrBlock: fmt.Sprintf("%s/%d", ip.String(), cfg.CidrMask),
			})
			cursor += size
		}
	}

	if err := checkOverlap(plans); err != nil {
		return nil, err
	}

	return plans, nil
}

// checkOverlap rejects any pair of planned subnets whose ranges intersect.
// Sequential allocation keeps this from firing, but the declaration layer
// promises the invariant, not the allocator.
func checkOverlap(plans []SubnetPlan) error {
	for i := 0; i < len(plans); i++ {
		_, a, err := net.ParseCIDR(plans[i].CidrBlock)
		if err != nil {
			return err
		}
		for j := i + 1; j < len(plans); j++ {
			_, b, err := net.ParseCIDR(plans[j].CidrBlock)
			if err != nil {
				return err
			}
			if a.Contains(b.IP) || b.Contains(a.IP) {
				return errors.New(errors.ErrStackInvalid, "overlapping subnet ranges",
					map[string]interface{}{
						"first":  plans[i].CidrBlock,
						"second": plans[j].CidrBlock,
					}, nil)
			}
		}
	}
	return nil
}
