package provisioner

import (
	"context"

	"github.com/nasir19noor/aws-cdk/awsd"
	"github.com/nasir19noor/aws-cdk/awsd/models"
	"github.com/nasir19noor/aws-cdk/stack"
)

// CloudClient defines the provider operations the provisioner needs. The
// awsd client satisfies it; tests substitute a mock.
type CloudClient interface {
	AvailabilityZones(ctx context.Context, max int) ([]string, error)
	ResolveImage(ctx context.Context, spec stack.MachineImageSpec) (string, error)
	KeyPairExists(ctx context.Context, name string) (bool, error)

	FindVPC(ctx context.Context, stackName string) (string, error)
	CreateVPC(ctx context.Context, stackName string, network stack.NetworkSpec) (string, error)
	DeleteVPC(ctx context.Context, vpcID string) error

	FindSubnet(ctx context.Context, stackName, planName string) (string, error)
	CreateSubnet(ctx context.Context, stackName, vpcID, az string, plan stack.SubnetPlan) (string, error)
	DeleteSubnet(ctx context.Context, subnetID string) error

	FindInternetGateway(ctx context.Context, stackName string) (string, error)
	CreateInternetGateway(ctx context.Context, stackName, vpcID string) (string, error)
	DeleteInternetGateway(ctx context.Context, igwID, vpcID string) error

	FindRouteTable(ctx context.Context, stackName, name string) (string, error)
	CreateRouteTable(ctx context.Context, stackName, vpcID, name string) (string, error)
	CreateInternetRoute(ctx context.Context, routeTableID, igwID string) error
	CreateNatRoute(ctx context.Context, routeTableID, natID string) error
	AssociateRouteTable(ctx context.Context, routeTableID, subnetID string) error
	DeleteRouteTable(ctx context.Context, routeTableID string) error

	FindAddress(ctx context.Context, stackName string) (string, error)
	AllocateAddress(ctx context.Context, stackName string) (string, error)
	ReleaseAddress(ctx context.Context, allocationID string) error

	FindNatGateway(ctx context.Context, stackName string) (string, error)
	CreateNatGateway(ctx context.Context, stackName, subnetID, allocationID string) (string, error)
	NatGatewayState(ctx context.Context, natID string) (string, error)
	DeleteNatGateway(ctx context.Context, natID string) error

	FindSecurityGroup(ctx context.Context, stackName string) (string, error)
	CreateSecurityGroup(ctx context.Context, stackName, vpcID string, spec stack.SecurityGroupSpec) (string, error)
	DeleteSecurityGroup(ctx context.Context, groupID string) error

	FindInstance(ctx context.Context, stackName string) (string, error)
	RunInstance(ctx context.Context, stackName string, in awsd.RunInstanceInput) (string, error)
	DescribeInstance(ctx context.Context, instanceID string) (*models.AWSInstance, error)
	TerminateInstance(ctx context.Context, instanceID string) error
}

// StackProvisioner defines the operations offered to the entry point.
type StackProvisioner interface {
	Apply(ctx context.Context, st *stack.Stack) (*models.ProvisionedStack, error)
	Destroy(ctx context.Context, st *stack.Stack) error
}
