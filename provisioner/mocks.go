package provisioner

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nasir19noor/aws-cdk/awsd"
	"github.com/nasir19noor/aws-cdk/awsd/models"
	"github.com/nasir19noor/aws-cdk/stack"
)

// MockCloudClient is a testify mock of CloudClient.
type MockCloudClient struct {
	mock.Mock
}

func (m *MockCloudClient) AvailabilityZones(ctx context.Context, max int) ([]string, error) {
	args := m.Called(ctx, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCloudClient) ResolveImage(ctx context.Context, spec stack.MachineImageSpec) (string, error) {
	args := m.Called(ctx, spec)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) KeyPairExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockCloudClient) FindVPC(ctx context.Context, stackName string) (string, error) {
	args := m.Called(ctx, stackName)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) CreateVPC(ctx context.Context, stackName string, network stack.NetworkSpec) (string, error) {
	args := m.Called(ctx, stackName, network)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) DeleteVPC(ctx context.Context, vpcID string) error {
	args := m.Called(ctx, vpcID)
	return args.Error(0)
}

func (m *MockCloudClient) FindSubnet(ctx context.Context, stackName, planName string) (string, error) {
	args := m.Called(ctx, stackName, planName)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) CreateSubnet(ctx context.Context, stackName, vpcID, az string, plan stack.SubnetPlan) (string, error) {
	args := m.Called(ctx, stackName, vpcID, az, plan)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) DeleteSubnet(ctx context.Context, subnetID string) error {
	args := m.Called(ctx, subnetID)
	return args.Error(0)
}

func (m *MockCloudClient) FindInternetGateway(ctx context.Context, stackName string) (string, error) {
	args := m.Called(ctx, stackName)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) CreateInternetGateway(ctx context.Context, stackName, vpcID string) (string, error) {
	args := m.Called(ctx, stackName, vpcID)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) DeleteInternetGateway(ctx context.Context, igwID, vpcID string) error {
	args := m.Called(ctx, igwID, vpcID)
	return args.Error(0)
}

func (m *MockCloudClient) FindRouteTable(ctx context.Context, stackName, name string) (string, error) {
	args := m.Called(ctx, stackName, name)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) CreateRouteTable(ctx context.Context, stackName, vpcID, name string) (string, error) {
	args := m.Called(ctx, stackName, vpcID, name)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) CreateInternetRoute(ctx context.Context, routeTableID, igwID string) error {
	args := m.Called(ctx, routeTableID, igwID)
	return args.Error(0)
}

func (m *MockCloudClient) CreateNatRoute(ctx context.Context, routeTableID, natID string) error {
	args := m.Called(ctx, routeTableID, natID)
	return args.Error(0)
}

func (m *MockCloudClient) AssociateRouteTable(ctx context.Context, routeTableID, subnetID string) error {
	args := m.Called(ctx, routeTableID, subnetID)
	return args.Error(0)
}

func (m *MockCloudClient) DeleteRouteTable(ctx context.Context, routeTableID string) error {
	args := m.Called(ctx, routeTableID)
	return args.Error(0)
}

func (m *MockCloudClient) FindAddress(ctx context.Context, stackName string) (string, error) {
	args := m.Called(ctx, stackName)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) AllocateAddress(ctx context.Context, stackName string) (string, error) {
	args := m.Called(ctx, stackName)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) ReleaseAddress(ctx context.Context, allocationID string) error {
	args := m.Called(ctx, allocationID)
	return args.Error(0)
}

func (m *MockCloudClient) FindNatGateway(ctx context.Context, stackName string) (string, error) {
	args := m.Called(ctx, stackName)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) CreateNatGateway(ctx context.Context, stackName, subnetID, allocationID string) (string, error) {
	args := m.Called(ctx, stackName, subnetID, allocationID)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) NatGatewayState(ctx context.Context, natID string) (string, error) {
	args := m.Called(ctx, natID)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) DeleteNatGateway(ctx context.Context, natID string) error {
	args := m.Called(ctx, natID)
	return args.Error(0)
}

func (m *MockCloudClient) FindSecurityGroup(ctx context.Context, stackName string) (string, error) {
	args := m.Called(ctx, stackName)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) CreateSecurityGroup(ctx context.Context, stackName, vpcID string, spec stack.SecurityGroupSpec) (string, error) {
	args := m.Called(ctx, stackName, vpcID, spec)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

func (m *MockCloudClient) FindInstance(ctx context.Context, stackName string) (string, error) {
	args := m.Called(ctx, stackName)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) RunInstance(ctx context.Context, stackName string, in awsd.RunInstanceInput) (string, error) {
	args := m.Called(ctx, stackName, in)
	return args.String(0), args.Error(1)
}

func (m *MockCloudClient) DescribeInstance(ctx context.Context, instanceID string) (*models.AWSInstance, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AWSInstance), args.Error(1)
}

func (m *MockCloudClient) TerminateInstance(ctx context.Context, instanceID string) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}
