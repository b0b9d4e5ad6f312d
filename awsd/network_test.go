package awsd

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nasir19noor/aws-cdk/stack"
)

func TestCreateVPCSetsDnsAttributes(t *testing.T) {
	var attributeCalls []*ec2.ModifyVpcAttributeInput
	mockClient := &MockEC2Client{
		CreateVpcFunc: func(ctx context.Context, params *ec2.CreateVpcInput, optFns ...func(*ec2.Options)) (*ec2.CreateVpcOutput, error) {
			assert.Equal(t, "10.0.0.0/16", aws.ToString(params.CidrBlock))
			require.Len(t, params.TagSpecifications, 1)
			assert.Equal(t, types.ResourceTypeVpc, params.TagSpecifications[0].ResourceType)
			return &ec2.CreateVpcOutput{
				Vpc: &types.Vpc{VpcId: aws.String("vpc-0123")},
			}, nil
		},
		ModifyVpcAttributeFunc: func(ctx context.Context, params *ec2.ModifyVpcAttributeInput, optFns ...func(*ec2.Options)) (*ec2.ModifyVpcAttributeOutput, error) {
			attributeCalls = append(attributeCalls, params)
			return &ec2.ModifyVpcAttributeOutput{}, nil
		},
	}

	vpcID, err := NewClientWithAPI(mockClient).CreateVPC(context.Background(), "TestStack", stack.NetworkSpec{
		CidrBlock:          "10.0.0.0/16",
		EnableDnsSupport:   true,
		EnableDnsHostnames: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "vpc-0123", vpcID)

	// DNS support and DNS hostnames go out as two separate attribute calls.
	require.Len(t, attributeCalls, 2)
	assert.NotNil(t, attributeCalls[0].EnableDnsSupport)
	assert.Nil(t, attributeCalls[0].EnableDnsHostnames)
	assert.Nil(t, attributeCalls[1].EnableDnsSupport)
	assert.NotNil(t, attributeCalls[1].EnableDnsHostnames)
}

func TestFindVPCFiltersByStackTags(t *testing.T) {
	var gotFilters []types.Filter
	mockClient := &MockEC2Client{
		DescribeVpcsFunc: func(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
			gotFilters = params.Filters
			return &ec2.DescribeVpcsOutput{
				Vpcs: []types.Vpc{{VpcId: aws.String("vpc-0123")}},
			}, nil
		},
	}

	vpcID, err := NewClientWithAPI(mockClient).FindVPC(context.Background(), "TestStack")
	require.NoError(t, err)
	assert.Equal(t, "vpc-0123", vpcID)

	require.Len(t, gotFilters, 2)
	assert.Equal(t, "tag:Stack", aws.ToString(gotFilters[0].Name))
	assert.Equal(t, []string{"TestStack"}, gotFilters[0].Values)
	assert.Equal(t, "tag:Name", aws.ToString(gotFilters[1].Name))
	assert.Equal(t, []string{"TestStack-vpc"}, gotFilters[1].Values)
}

func TestFindVPCAbsent(t *testing.T) {
	vpcID, err := NewClientWithAPI(&MockEC2Client{}).FindVPC(context.Background(), "TestStack")
	require.NoError(t, err)
	assert.Empty(t, vpcID)
}

func TestCreateSubnetMapsPublicIPForPublicRole(t *testing.T) {
	tests := []struct {
		name        string
		role        stack.SubnetRole
		wantMapping bool
	}{
		{name: "public subnet maps public IPs", role: stack.RolePublic, wantMapping: true},
		{name: "private subnet does not", role: stack.RolePrivateWithEgress, wantMapping: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := false
			mockClient := &MockEC2Client{
				CreateSubnetFunc: func(ctx context.Context, params *ec2.CreateSubnetInput, optFns ...func(*ec2.Options)) (*ec2.CreateSubnetOutput, error) {
					assert.Equal(t, "10.0.0.0/24", aws.ToString(params.CidrBlock))
					assert.Equal(t, "us-east-1a", aws.ToString(params.AvailabilityZone))
					return &ec2.CreateSubnetOutput{
						Subnet: &types.Subnet{SubnetId: aws.String("subnet-0123")},
					}, nil
				},
				ModifySubnetAttributeFunc: func(ctx context.Context, params *ec2.ModifySubnetAttributeInput, optFns ...func(*ec2.Options)) (*ec2.ModifySubnetAttributeOutput, error) {
					mapped = true
					assert.Equal(t, "subnet-0123", aws.ToString(params.SubnetId))
					require.NotNil(t, params.MapPublicIpOnLaunch)
					assert.True(t, aws.ToBool(params.MapPublicIpOnLaunch.Value))
					return &ec2.ModifySubnetAttributeOutput{}, nil
				},
			}

			subnetID, err := NewClientWithAPI(mockClient).CreateSubnet(context.Background(), "TestStack", "vpc-0123", "us-east-1a", stack.SubnetPlan{
				Name:      "PublicSubnet1",
				Role:      tt.role,
				AZIndex:   0,
				CidrBlock: "10.0.0.0/24",
			})
			require.NoError(t, err)
			assert.Equal(t, "subnet-0123", subnetID)
			assert.Equal(t, tt.wantMapping, mapped)
		})
	}
}

func TestCreateInternetGatewayAttaches(t *testing.T) {
	attached := false
	mockClient := &MockEC2Client{
		CreateInternetGatewayFunc: func(ctx context.Context, params *ec2.CreateInternetGatewayInput, optFns ...func(*ec2.Options)) (*ec2.CreateInternetGatewayOutput, error) {
			return &ec2.CreateInternetGatewayOutput{
				InternetGateway: &types.InternetGateway{InternetGatewayId: aws.String("igw-0123")},
			}, nil
		},
		AttachInternetGatewayFunc: func(ctx context.Context, params *ec2.AttachInternetGatewayInput, optFns ...func(*ec2.Options)) (*ec2.AttachInternetGatewayOutput, error) {
			attached = true
			assert.Equal(t, "igw-0123", aws.ToString(params.InternetGatewayId))
			assert.Equal(t, "vpc-0123", aws.ToString(params.VpcId))
			return &ec2.AttachInternetGatewayOutput{}, nil
		},
	}

	igwID, err := NewClientWithAPI(mockClient).CreateInternetGateway(context.Background(), "TestStack", "vpc-0123")
	require.NoError(t, err)
	assert.Equal(t, "igw-0123", igwID)
	assert.True(t, attached)
}

func TestDeleteInternetGatewayDetachesFirst(t *testing.T) {
	var order []string
	mockClient := &MockEC2Client{
		DetachInternetGatewayFunc: func(ctx context.Context, params *ec2.DetachInternetGatewayInput, optFns ...func(*ec2.Options)) (*ec2.DetachInternetGatewayOutput, error) {
			order = append(order, "detach")
			return &ec2.DetachInternetGatewayOutput{}, nil
		},
		DeleteInternetGatewayFunc: func(ctx context.Context, params *ec2.DeleteInternetGatewayInput, optFns ...func(*ec2.Options)) (*ec2.DeleteInternetGatewayOutput, error) {
			order = append(order, "delete")
			return &ec2.DeleteInternetGatewayOutput{}, nil
		},
	}

	err := NewClientWithAPI(mockClient).DeleteInternetGateway(context.Background(), "igw-0123", "vpc-0123")
	require.NoError(t, err)
	assert.Equal(t, []string{"detach", "delete"}, order)
}

func TestRouteCreation(t *testing.T) {
	var gotRoute *ec2.CreateRouteInput
	mockClient := &MockEC2Client{
		CreateRouteFunc: func(ctx context.Context, params *ec2.CreateRouteInput, optFns ...func(*ec2.Options)) (*ec2.CreateRouteOutput, error) {
			gotRoute = params
			return &ec2.CreateRouteOutput{}, nil
		},
	}
	client := NewClientWithAPI(mockClient)

	require.NoError(t, client.CreateInternetRoute(context.Background(), "rtb-pub", "igw-0123"))
	assert.Equal(t, "0.0.0.0/0", aws.ToString(gotRoute.DestinationCidrBlock))
	assert.Equal(t, "igw-0123", aws.ToString(gotRoute.GatewayId))
	assert.Nil(t, gotRoute.NatGatewayId)

	require.NoError(t, client.CreateNatRoute(context.Background(), "rtb-priv", "nat-0123"))
	assert.Equal(t, "0.0.0.0/0", aws.ToString(gotRoute.DestinationCidrBlock))
	assert.Equal(t, "nat-0123", aws.ToString(gotRoute.NatGatewayId))
	assert.Nil(t, gotRoute.GatewayId)
}

func TestFindNatGatewayIgnoresDeleted(t *testing.T) {
	var gotFilters []types.Filter
	mockClient := &MockEC2Client{
		DescribeNatGatewaysFunc: func(ctx context.Context, params *ec2.DescribeNatGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
			gotFilters = params.Filter
			return &ec2.DescribeNatGatewaysOutput{}, nil
		},
	}

	natID, err := NewClientWithAPI(mockClient).FindNatGateway(context.Background(), "TestStack")
	require.NoError(t, err)
	assert.Empty(t, natID)

	require.Len(t, gotFilters, 3)
	assert.Equal(t, "state", aws.ToString(gotFilters[2].Name))
	assert.Equal(t, []string{"pending", "available"}, gotFilters[2].Values)
}

func TestNatGatewayState(t *testing.T) {
	tests := []struct {
		name string
		out  *ec2.DescribeNatGatewaysOutput
		want string
	}{
		{
			name: "reports lifecycle state",
			out: &ec2.DescribeNatGatewaysOutput{
				NatGateways: []types.NatGateway{{State: types.NatGatewayStateAvailable}},
			},
			want: "available",
		},
		{
			name: "empty when the gateway is gone",
			out:  &ec2.DescribeNatGatewaysOutput{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := &MockEC2Client{
				DescribeNatGatewaysFunc: func(ctx context.Context, params *ec2.DescribeNatGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
					assert.Equal(t, []string{"nat-0123"}, params.NatGatewayIds)
					return tt.out, nil
				},
			}

			state, err := NewClientWithAPI(mockClient).NatGatewayState(context.Background(), "nat-0123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
		})
	}
}
