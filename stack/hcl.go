package stack

import (
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/nasir19noor/aws-cdk/errors"
)

// HCL shapes for the stack declaration file. The seven output bindings are
// part of the topology contract, not file-configurable; see StandardOutputs.
type stackFile struct {
	Stack stackBlock `hcl:"stack,block"`
}

type stackBlock struct {
	Name          string        `hcl:"name,label"`
	Description   string        `hcl:"description,optional"`
	Network       networkBlock  `hcl:"network,block"`
	SecurityGroup sgBlock       `hcl:"security_group,block"`
	Image         *imageBlock   `hcl:"image,block"`
	Instance      instanceBlock `hcl:"instance,block"`
}

type networkBlock struct {
	CidrBlock    string        `hcl:"cidr_block"`
	MaxAZs       int           `hcl:"max_azs"`
	DnsSupport   *bool         `hcl:"dns_support"`
	DnsHostnames *bool         `hcl:"dns_hostnames"`
	Subnets      []subnetBlock `hcl:"subnet,block"`
}

type subnetBlock struct {
	Name     string `hcl:"name,label"`
	Role     string `hcl:"role"`
	CidrMask int    `hcl:"cidr_mask"`
}

type sgBlock struct {
	Description string         `hcl:"description,optional"`
	Ingress     []ingressBlock `hcl:"ingress,block"`
}

type ingressBlock struct {
	CidrIP      string `hcl:"cidr_ip"`
	Protocol    string `hcl:"protocol"`
	Port        int32  `hcl:"port"`
	Description string `hcl:"description,optional"`
}

type imageBlock struct {
	Distribution   string `hcl:"distribution,optional"`
	Edition        string `hcl:"edition,optional"`
	Virtualization string `hcl:"virtualization,optional"`
	Storage        string `hcl:"storage,optional"`
}

type instanceBlock struct {
	Type     string   `hcl:"type"`
	KeyName  string   `hcl:"key_name"`
	UserData []string `hcl:"user_data,optional"`
}

// ParseStackFile decodes an HCL stack declaration and runs it through the
// same builder validation as the built-in default.
func ParseStackFile(path string) (*Stack, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.New(errors.ErrStackDecode, "failed to parse stack file",
			map[string]interface{}{
				"path": path,
			}, diags)
	}

	var root stackFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, errors.New(errors.ErrStackDecode, "failed to decode stack file",
			map[string]interface{}{
				"path": path,
			}, diags)
	}

	return fromBlocks(root.Stack)
}

func fromBlocks(block stackBlock) (*Stack, error) {
	network := NetworkSpec{
		CidrBlock:          block.Network.CidrBlock,
		MaxAZs:             block.Network.MaxAZs,
		EnableDnsSupport:   true,
		EnableDnsHostnames: true,
	}
	if block.Network.DnsSupport != nil {
		network.EnableDnsSupport = *block.Network.DnsSupport
	}
	if block.Network.DnsHostnames != nil {
		network.EnableDnsHostnames = *block.Network.DnsHostnames
	}
	for _, sub := range block.Network.Subnets {
		network.Subnets = append(network.Subnets, SubnetConfiguration{
			Name:     sub.Name,
			Role:     SubnetRole(sub.Role),
			CidrMask: sub.CidrMask,
		})
	}

	sg := SecurityGroupSpec{
		Description:      block.SecurityGroup.Description,
		AllowAllOutbound: true,
	}
	for _, rule := range block.SecurityGroup.Ingress {
		sg.Ingress = append(sg.Ingress, IngressRule{
			CidrIP:      rule.CidrIP,
			Protocol:    rule.Protocol,
			Port:        rule.Port,
			Description: rule.Description,
		})
	}

	image := DefaultMachineImage()
	if block.Image != nil {
		if block.Image.Distribution != "" {
			image.Distribution = block.Image.Distribution
		}
		if block.Image.Edition != "" {
			image.Edition = block.Image.Edition
		}
		if block.Image.Virtualization != "" {
			image.Virtualization = block.Image.Virtualization
		}
		if block.Image.Storage != "" {
			image.Storage = block.Image.Storage
		}
	}

	instance := InstanceSpec{
		InstanceType: block.Instance.Type,
		KeyName:      block.Instance.KeyName,
		BootScript:   BootScript{Commands: block.Instance.UserData},
	}
	if len(instance.BootScript.Commands) == 0 {
		instance.BootScript = WebServerBootScript()
	}

	return New(block.Name, network, sg, image, instance, StandardOutputs())
}
