package awsd

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"

	"github.com/nasir19noor/aws-cdk/stack"
)

// Logical names used in resource tags. Lookups and creates must agree on
// these so a re-apply finds what the previous apply tagged.
const (
	nameVPC             = "vpc"
	nameInternetGateway = "igw"
	namePublicRoutes    = "public-rt"
	namePrivateRoutes   = "private-rt"
	nameNatEIP          = "nat-eip"
	nameNatGateway      = "nat"
)

// CreateVPC creates the VPC and applies the DNS attribute flags. DNS support
// and DNS hostnames are separate ModifyVpcAttribute calls; the API rejects
// setting both in one request.
func (c *AwsClient) CreateVPC(ctx context.Context, stackName string, network stack.NetworkSpec) (string, error) {
	out, err := c.client.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock:         aws.String(network.CidrBlock),
		TagSpecifications: tagSpec(types.ResourceTypeVpc, stackName, nameVPC),
	})
	if err != nil {
		return "", err
	}
	vpcID := aws.ToString(out.Vpc.VpcId)

	if network.EnableDnsSupport {
		_, err = c.client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:            aws.String(vpcID),
			EnableDnsSupport: &types.AttributeBooleanValue{Value: aws.Bool(true)},
		})
		if err != nil {
			return vpcID, err
		}
	}
	if network.EnableDnsHostnames {
		_, err = c.client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:              aws.String(vpcID),
			EnableDnsHostnames: &types.AttributeBooleanValue{Value: aws.Bool(true)},
		})
		if err != nil {
			return vpcID, err
		}
	}

	zap.L().Info("VPC created",
		zap.String("operation", "vpc_create"),
		zap.String("vpc_id", vpcID),
		zap.String("cidr", network.CidrBlock),
	)
	return vpcID, nil
}

// FindVPC returns the stack's VPC ID, or "" when none exists yet.
func (c *AwsClient) FindVPC(ctx context.Context, stackName string) (string, error) {
	out, err := c.client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: stackFilters(stackName, nameVPC),
	})
	if err != nil {
		return "", err
	}
	if len(out.Vpcs) == 0 {
		return "", nil
	}
	return aws.ToString(out.Vpcs[0].VpcId), nil
}

func (c *AwsClient) DeleteVPC(ctx context.Context, vpcID string) error {
	_, err := c.client.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: aws.String(vpcID)})
	return err
}

// CreateSubnet creates one planned subnet in the given AZ. Public subnets
// additionally map public IPs on launch, which needs a separate attribute
// call after creation.
func (c *AwsClient) CreateSubnet(ctx context.Context, stackName, vpcID, az string, plan stack.SubnetPlan) (string, error) {
	out, err := c.client.CreateSubnet(ctx, &ec2.CreateSubnetInput{
		VpcId:             aws.String(vpcID),
		CidrBlock:         aws.String(plan.CidrBlock),
		AvailabilityZone:  aws.String(az),
		TagSpecifications: tagSpec(types.ResourceTypeSubnet, stackName, plan.Name),
	})
	if err != nil {
		return "", err
	}
	subnetID := aws.ToString(out.Subnet.SubnetId)

	if plan.Role == stack.RolePublic {
		_, err = c.client.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            aws.String(subnetID),
			MapPublicIpOnLaunch: &types.AttributeBooleanValue{Value: aws.Bool(true)},
		})
		if err != nil {
			return subnetID, err
		}
	}

	zap.L().Info("Subnet created",
		zap.String("operation", "subnet_create"),
		zap.String("subnet_id", subnetID),
		zap.String("name", plan.Name),
		zap.String("cidr", plan.CidrBlock),
		zap.String("az", az),
	)
	return subnetID, nil
}

// FindSubnet returns the subnet ID for one planned subnet, or "".
func (c *AwsClient) FindSubnet(ctx context.Context, stackName, planName string) (string, error) {
	out, err := c.client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: stackFilters(stackName, planName),
	})
	if err != nil {
		return "", err
	}
	if len(out.Subnets) == 0 {
		return "", nil
	}
	return aws.ToString(out.Subnets[0].SubnetId), nil
}

func (c *AwsClient) DeleteSubnet(ctx context.Context, subnetID string) error {
	_, err := c.client.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: aws.String(subnetID)})
	return err
}

// CreateInternetGateway creates the gateway and attaches it to the VPC.
func (c *AwsClient) CreateInternetGateway(ctx context.Context, stackName, vpcID string) (string, error) {
	out, err := c.client.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{
		TagSpecifications: tagSpec(types.ResourceTypeInternetGateway, stackName, nameInternetGateway),
	})
	if err != nil {
		return "", err
	}
	igwID := aws.ToString(out.InternetGateway.InternetGatewayId)

	_, err = c.client.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
		InternetGatewayId: aws.String(igwID),
		VpcId:             aws.String(vpcID),
	})
	if err != nil {
		return igwID, err
	}

	zap.L().Info("Internet gateway attached",
		zap.String("operation", "igw_create"),
		zap.String("igw_id", igwID),
		zap.String("vpc_id", vpcID),
	)
	return igwID, nil
}

func (c *AwsClient) FindInternetGateway(ctx context.Context, stackName string) (string, error) {
	out, err := c.client.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
		Filters: stackFilters(stackName, nameInternetGateway),
	})
	if err != nil {
		return "", err
	}
	if len(out.InternetGateways) == 0 {
		return "", nil
	}
	return aws.ToString(out.InternetGateways[0].InternetGatewayId), nil
}

func (c *AwsClient) DeleteInternetGateway(ctx context.Context, igwID, vpcID string) error {
	_, err := c.client.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
		InternetGatewayId: aws.String(igwID),
		VpcId:             aws.String(vpcID),
	})
	if err != nil {
		return err
	}
	_, err = c.client.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{
		InternetGatewayId: aws.String(igwID),
	})
	return err
}

// CreateRouteTable creates a route table tagged with the given logical name.
func (c *AwsClient) CreateRouteTable(ctx context.Context, stackName, vpcID, name string) (string, error) {
	out, err := c.client.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId:             aws.String(vpcID),
		TagSpecifications: tagSpec(types.ResourceTypeRouteTable, stackName, name),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.RouteTable.RouteTableId), nil
}

func (c *AwsClient) FindRouteTable(ctx context.Context, stackName, name string) (string, error) {
	out, err := c.client.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: stackFilters(stackName, name),
	})
	if err != nil {
		return "", err
	}
	if len(out.RouteTables) == 0 {
		return "", nil
	}
	return aws.ToString(out.RouteTables[0].RouteTableId), nil
}

// CreateInternetRoute adds a default route through the internet gateway.
func (c *AwsClient) CreateInternetRoute(ctx context.Context, routeTableID, igwID string) error {
	_, err := c.client.CreateRoute(ctx, &ec2.CreateRouteInput{
		RouteTableId:         aws.String(routeTableID),
		DestinationCidrBlock: aws.String("0.0.0.0/0"),
		GatewayId:            aws.String(igwID),
	})
	return err
}

// CreateNatRoute adds a default route through the NAT gateway.
func (c *AwsClient) CreateNatRoute(ctx context.Context, routeTableID, natID string) error {
	_, err := c.client.CreateRoute(ctx, &ec2.CreateRouteInput{
		RouteTableId:         aws.String(routeTableID),
		DestinationCidrBlock: aws.String("0.0.0.0/0"),
		NatGatewayId:         aws.String(natID),
	})
	return err
}

func (c *AwsClient) AssociateRouteTable(ctx context.Context, routeTableID, subnetID string) error {
	_, err := c.client.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
		RouteTableId: aws.String(routeTableID),
		SubnetId:     aws.String(subnetID),
	})
	return err
}

func (c *AwsClient) DeleteRouteTable(ctx context.Context, routeTableID string) error {
	_, err := c.client.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{
		RouteTableId: aws.String(routeTableID),
	})
	return err
}

// AllocateAddress allocates the elastic IP backing the NAT gateway.
func (c *AwsClient) AllocateAddress(ctx context.Context, stackName string) (string, error) {
	out, err := c.client.AllocateAddress(ctx, &ec2.AllocateAddressInput{
		Domain:            types.DomainTypeVpc,
		TagSpecifications: tagSpec(types.ResourceTypeElasticIp, stackName, nameNatEIP),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.AllocationId), nil
}

func (c *AwsClient) FindAddress(ctx context.Context, stackName string) (string, error) {
	out, err := c.client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{
		Filters: stackFilters(stackName, nameNatEIP),
	})
	if err != nil {
		return "", err
	}
	if len(out.Addresses) == 0 {
		return "", nil
	}
	return aws.ToString(out.Addresses[0].AllocationId), nil
}

func (c *AwsClient) ReleaseAddress(ctx context.Context, allocationID string) error {
	_, err := c.client.ReleaseAddress(ctx, &ec2.ReleaseAddressInput{
		AllocationId: aws.String(allocationID),
	})
	return err
}

// CreateNatGateway places the NAT gateway in the given public subnet.
func (c *AwsClient) CreateNatGateway(ctx context.Context, stackName, subnetID, allocationID string) (string, error) {
	out, err := c.client.CreateNatGateway(ctx, &ec2.CreateNatGatewayInput{
		SubnetId:          aws.String(subnetID),
		AllocationId:      aws.String(allocationID),
		TagSpecifications: tagSpec(types.ResourceTypeNatgateway, stackName, nameNatGateway),
	})
	if err != nil {
		return "", err
	}
	natID := aws.ToString(out.NatGateway.NatGatewayId)

	zap.L().Info("NAT gateway created",
		zap.String("operation", "nat_create"),
		zap.String("nat_id", natID),
		zap.String("subnet_id", subnetID),
	)
	return natID, nil
}

// FindNatGateway ignores gateways already deleted or deleting.
func (c *AwsClient) FindNatGateway(ctx context.Context, stackName string) (string, error) {
	filters := stackFilters(stackName, nameNatGateway)
	filters = append(filters, types.Filter{
		Name:   aws.String("state"),
		Values: []string{"pending", "available"},
	})
	out, err := c.client.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		Filter: filters,
	})
	if err != nil {
		return "", err
	}
	if len(out.NatGateways) == 0 {
		return "", nil
	}
	return aws.ToString(out.NatGateways[0].NatGatewayId), nil
}

// NatGatewayState reports the lifecycle state, "" when the gateway is gone.
func (c *AwsClient) NatGatewayState(ctx context.Context, natID string) (string, error) {
	out, err := c.client.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		NatGatewayIds: []string{natID},
	})
	if err != nil {
		return "", err
	}
	if len(out.NatGateways) == 0 {
		return "", nil
	}
	return string(out.NatGateways[0].State), nil
}

func (c *AwsClient) DeleteNatGateway(ctx context.Context, natID string) error {
	_, err := c.client.DeleteNatGateway(ctx, &ec2.DeleteNatGatewayInput{
		NatGatewayId: aws.String(natID),
	})
	return err
}

// RouteTableNames returns the logical names of the two stack route tables.
func RouteTableNames() (public string, private string) {
	return namePublicRoutes, namePrivateRoutes
}
