package stack

// Default returns the built-in declaration: a 10.0.0.0/16 VPC over two AZs
// with public and egress-only /24 subnet groups, a security group open for
// SSH/HTTP/HTTPS, and one t3.micro web server keyed by `my-key-pair`.
// Used when no stack file is configured.
func Default(name string) (*Stack, error) {
	network := NetworkSpec{
		CidrBlock:          "10.0.0.0/16",
		MaxAZs:             2,
		EnableDnsSupport:   true,
		EnableDnsHostnames: true,
		Subnets: []SubnetConfiguration{
			{Name: "PublicSubnet", Role: RolePublic, CidrMask: 24},
			{Name: "PrivateSubnet", Role: RolePrivateWithEgress, CidrMask: 24},
		},
	}

	sg := SecurityGroupSpec{
		Description:      "Security group for EC2 instance",
		AllowAllOutbound: true,
		Ingress: []IngressRule{
			{CidrIP: "0.0.0.0/0", Protocol: "tcp", Port: 22, Description: "SSH access"},
			{CidrIP: "0.0.0.0/0", Protocol: "tcp", Port: 80, Description: "HTTP access"},
			{CidrIP: "0.0.0.0/0", Protocol: "tcp", Port: 443, Description: "HTTPS access"},
		},
	}

	instance := InstanceSpec{
		InstanceType: "t3.micro",
		KeyName:      "my-key-pair",
		BootScript:   WebServerBootScript(),
	}

	return New(name, network, sg, DefaultMachineImage(), instance, StandardOutputs())
}

// DefaultMachineImage selects the latest Amazon Linux 2 standard HVM image
// with general-purpose storage, resolved at apply time.
func DefaultMachineImage() MachineImageSpec {
	return MachineImageSpec{
		Distribution:   "amazon-linux-2",
		Edition:        "standard",
		Virtualization: "hvm",
		Storage:        "general-purpose",
	}
}

// StandardOutputs is the fixed set of seven output bindings every stack
// exposes, in insertion order.
func StandardOutputs() []OutputBinding {
	return []OutputBinding{
		{Name: "VPCId", Source: SourceVPCID, Description: "VPC ID"},
		{Name: "InternetGatewayId", Source: SourceInternetGatewayID, Description: "Internet Gateway ID"},
		{Name: "PublicSubnetId", Source: SourcePublicSubnetID, Description: "Public Subnet ID"},
		{Name: "SecurityGroupId", Source: SourceSecurityGroupID, Description: "Security Group ID"},
		{Name: "EC2InstanceId", Source: SourceInstanceID, Description: "EC2 Instance ID"},
		{Name: "EC2PublicIP", Source: SourceInstancePublicIP, Description: "EC2 Instance Public IP"},
		{Name: "EC2PublicDNS", Source: SourceInstancePublicDNS, Description: "EC2 Instance Public DNS"},
	}
}
