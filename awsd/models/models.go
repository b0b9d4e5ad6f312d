package models

// AWSInstance represents the structure of an EC2 instance
type AWSInstance struct {
	InstanceID     string
	InstanceType   string
	State          string
	PrivateIP      string
	PublicIP       string
	KeyName        string
	LaunchTime     string
	PrivateDnsName string
	PublicDnsName  string
	SubnetID       string
	AMI            string
	SecurityGroups []SecurityGroup
	Tags           map[string]string
}

// SecurityGroup represents a security group associated with an instance
type SecurityGroup struct {
	GroupId string
}

// Output is one resolved output binding of a provisioned stack
type Output struct {
	Name        string
	Value       string
	Description string
}

// ProvisionedStack records the resolved identifiers of an applied stack
type ProvisionedStack struct {
	StackName           string
	VpcID               string
	SubnetIDs           map[string]string
	PublicSubnetIDs     []string
	PrivateSubnetIDs    []string
	InternetGatewayID   string
	PublicRouteTableID  string
	PrivateRouteTableID string
	AllocationID        string
	NatGatewayID        string
	SecurityGroupID     string
	InstanceID          string
	Outputs             []Output
}
