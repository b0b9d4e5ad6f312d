package provisioner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nasir19noor/aws-cdk/awsd"
	"github.com/nasir19noor/aws-cdk/awsd/models"
	"github.com/nasir19noor/aws-cdk/configuration"
	"github.com/nasir19noor/aws-cdk/errors"
	"github.com/nasir19noor/aws-cdk/stack"
)

func testService(cloud CloudClient) *Service {
	return NewService(cloud, &configuration.Config{
		MaxRetries: 3,
		RetryDelay: 0,
	}, zap.NewNop())
}

func testStack(t *testing.T) *stack.Stack {
	t.Helper()
	st, err := stack.Default("TestStack")
	require.NoError(t, err)
	return st
}

func runningInstance(id string) *models.AWSInstance {
	return &models.AWSInstance{
		InstanceID:    id,
		State:         "running",
		PublicIP:      "54.210.1.2",
		PublicDnsName: "ec2-54-210-1-2.compute-1.amazonaws.com",
	}
}

func TestApplyCreatesFullTopology(t *testing.T) {
	st := testStack(t)
	azs := []string{"us-east-1a", "us-east-1b"}
	cloud := new(MockCloudClient)

	cloud.On("AvailabilityZones", mock.Anything, 2).Return(azs, nil)
	cloud.On("ResolveImage", mock.Anything, st.Image).Return("ami-0abc", nil)
	cloud.On("KeyPairExists", mock.Anything, "my-key-pair").Return(true, nil)

	cloud.On("FindVPC", mock.Anything, st.Name).Return("", nil)
	cloud.On("CreateVPC", mock.Anything, st.Name, st.Network).Return("vpc-0123", nil)

	subnetIDs := []string{"subnet-pub-1", "subnet-pub-2", "subnet-priv-1", "subnet-priv-2"}
	for i, plan := range st.SubnetPlans {
		cloud.On("FindSubnet", mock.Anything, st.Name, plan.Name).Return("", nil)
		cloud.On("CreateSubnet", mock.Anything, st.Name, "vpc-0123", azs[plan.AZIndex], plan).Return(subnetIDs[i], nil)
	}

	cloud.On("FindInternetGateway", mock.Anything, st.Name).Return("", nil)
	cloud.On("CreateInternetGateway", mock.Anything, st.Name, "vpc-0123").Return("igw-0123", nil)

	publicRT, privateRT := awsd.RouteTableNames()
	cloud.On("FindRouteTable", mock.Anything, st.Name, publicRT).Return("", nil)
	cloud.On("CreateRouteTable", mock.Anything, st.Name, "vpc-0123", publicRT).Return("rtb-pub", nil)
	cloud.On("CreateInternetRoute", mock.Anything, "rtb-pub", "igw-0123").Return(nil)
	cloud.On("AssociateRouteTable", mock.Anything, "rtb-pub", "subnet-pub-1").Return(nil)
	cloud.On("AssociateRouteTable", mock.Anything, "rtb-pub", "subnet-pub-2").Return(nil)

	cloud.On("FindAddress", mock.Anything, st.Name).Return("", nil)
	cloud.On("AllocateAddress", mock.Anything, st.Name).Return("eipalloc-0123", nil)
	cloud.On("FindNatGateway", mock.Anything, st.Name).Return("", nil)
	cloud.On("CreateNatGateway", mock.Anything, st.Name, "subnet-pub-1", "eipalloc-0123").Return("nat-0123", nil)
	cloud.On("NatGatewayState", mock.Anything, "nat-0123").Return("available", nil)

	cloud.On("FindRouteTable", mock.Anything, st.Name, privateRT).Return("", nil)
	cloud.On("CreateRouteTable", mock.Anything, st.Name, "vpc-0123", privateRT).Return("rtb-priv", nil)
	cloud.On("CreateNatRoute", mock.Anything, "rtb-priv", "nat-0123").Return(nil)
	cloud.On("AssociateRouteTable", mock.Anything, "rtb-priv", "subnet-priv-1").Return(nil)
	cloud.On("AssociateRouteTable", mock.Anything, "rtb-priv", "subnet-priv-2").Return(nil)

	cloud.On("FindSecurityGroup", mock.Anything, st.Name).Return("", nil)
	cloud.On("CreateSecurityGroup", mock.Anything, st.Name, "vpc-0123", st.SecurityGroup).Return("sg-0123", nil)

	cloud.On("FindInstance", mock.Anything, st.Name).Return("", nil)
	cloud.On("RunInstance", mock.Anything, st.Name, awsd.RunInstanceInput{
		InstanceType:    "t3.micro",
		ImageID:         "ami-0abc",
		SubnetID:        "subnet-pub-1",
		SecurityGroupID: "sg-0123",
		KeyName:         "my-key-pair",
		UserData:        st.Instance.BootScript.Render(),
	}).Return("i-0123", nil)
	cloud.On("DescribeInstance", mock.Anything, "i-0123").Return(runningInstance("i-0123"), nil)

	result, err := testService(cloud).Apply(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, "vpc-0123", result.VpcID)
	assert.Equal(t, "igw-0123", result.InternetGatewayID)
	assert.Equal(t, []string{"subnet-pub-1", "subnet-pub-2"}, result.PublicSubnetIDs)
	assert.Equal(t, []string{"subnet-priv-1", "subnet-priv-2"}, result.PrivateSubnetIDs)
	assert.Equal(t, "nat-0123", result.NatGatewayID)
	assert.Equal(t, "sg-0123", result.SecurityGroupID)
	assert.Equal(t, "i-0123", result.InstanceID)

	require.Len(t, result.Outputs, 7)
	values := make(map[string]string)
	for _, out := range result.Outputs {
		values[out.Name] = out.Value
	}
	assert.Equal(t, "vpc-0123", values["VPCId"])
	assert.Equal(t, "igw-0123", values["InternetGatewayId"])
	assert.Equal(t, "subnet-pub-1", values["PublicSubnetId"])
	assert.Equal(t, "sg-0123", values["SecurityGroupId"])
	assert.Equal(t, "i-0123", values["EC2InstanceId"])
	assert.Equal(t, "54.210.1.2", values["EC2PublicIP"])
	assert.Equal(t, "ec2-54-210-1-2.compute-1.amazonaws.com", values["EC2PublicDNS"])

	// Output order follows the declaration order.
	assert.Equal(t, "VPCId", result.Outputs[0].Name)
	assert.Equal(t, "EC2PublicDNS", result.Outputs[6].Name)

	cloud.AssertExpectations(t)
}

func TestApplyMissingKeyPairCreatesNothing(t *testing.T) {
	st := testStack(t)
	cloud := new(MockCloudClient)

	cloud.On("AvailabilityZones", mock.Anything, 2).Return([]string{"us-east-1a", "us-east-1b"}, nil)
	cloud.On("ResolveImage", mock.Anything, st.Image).Return("ami-0abc", nil)
	cloud.On("KeyPairExists", mock.Anything, "my-key-pair").Return(false, nil)

	result, err := testService(cloud).Apply(context.Background(), st)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, errors.ErrKeyPairMissing))

	cloud.AssertNotCalled(t, "FindVPC", mock.Anything, mock.Anything)
	cloud.AssertNotCalled(t, "CreateVPC", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyReusesExistingResources(t *testing.T) {
	st := testStack(t)
	cloud := new(MockCloudClient)

	cloud.On("AvailabilityZones", mock.Anything, 2).Return([]string{"us-east-1a", "us-east-1b"}, nil)
	cloud.On("ResolveImage", mock.Anything, st.Image).Return("ami-0abc", nil)
	cloud.On("KeyPairExists", mock.Anything, "my-key-pair").Return(true, nil)

	cloud.On("FindVPC", mock.Anything, st.Name).Return("vpc-0123", nil)
	subnetIDs := []string{"subnet-pub-1", "subnet-pub-2", "subnet-priv-1", "subnet-priv-2"}
	for i, plan := range st.SubnetPlans {
		cloud.On("FindSubnet", mock.Anything, st.Name, plan.Name).Return(subnetIDs[i], nil)
	}
	cloud.On("FindInternetGateway", mock.Anything, st.Name).Return("igw-0123", nil)
	publicRT, privateRT := awsd.RouteTableNames()
	cloud.On("FindRouteTable", mock.Anything, st.Name, publicRT).Return("rtb-pub", nil)
	cloud.On("FindAddress", mock.Anything, st.Name).Return("eipalloc-0123", nil)
	cloud.On("FindNatGateway", mock.Anything, st.Name).Return("nat-0123", nil)
	cloud.On("FindRouteTable", mock.Anything, st.Name, privateRT).Return("rtb-priv", nil)
	cloud.On("FindSecurityGroup", mock.Anything, st.Name).Return("sg-0123", nil)
	cloud.On("FindInstance", mock.Anything, st.Name).Return("i-0123", nil)
	cloud.On("DescribeInstance", mock.Anything, "i-0123").Return(runningInstance("i-0123"), nil)

	result, err := testService(cloud).Apply(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, result.Outputs, 7)
	assert.Equal(t, "vpc-0123", result.VpcID)
	assert.Equal(t, "i-0123", result.InstanceID)

	cloud.AssertNotCalled(t, "CreateVPC", mock.Anything, mock.Anything, mock.Anything)
	cloud.AssertNotCalled(t, "CreateSubnet", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	cloud.AssertNotCalled(t, "CreateInternetGateway", mock.Anything, mock.Anything, mock.Anything)
	cloud.AssertNotCalled(t, "CreateNatGateway", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	cloud.AssertNotCalled(t, "CreateSecurityGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	cloud.AssertNotCalled(t, "RunInstance", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyRollsBackCreatedResources(t *testing.T) {
	st := testStack(t)
	cloud := new(MockCloudClient)

	cloud.On("AvailabilityZones", mock.Anything, 2).Return([]string{"us-east-1a", "us-east-1b"}, nil)
	cloud.On("ResolveImage", mock.Anything, st.Image).Return("ami-0abc", nil)
	cloud.On("KeyPairExists", mock.Anything, "my-key-pair").Return(true, nil)

	cloud.On("FindVPC", mock.Anything, st.Name).Return("", nil)
	cloud.On("CreateVPC", mock.Anything, st.Name, st.Network).Return("vpc-0123", nil)
	cloud.On("FindSubnet", mock.Anything, st.Name, mock.Anything).Return("", nil)
	cloud.On("CreateSubnet", mock.Anything, st.Name, "vpc-0123", mock.Anything, mock.Anything).
		Return("", errors.New(errors.ErrAWSClient, "subnet quota exceeded", nil, nil))
	cloud.On("DeleteVPC", mock.Anything, "vpc-0123").Return(nil)

	result, err := testService(cloud).Apply(context.Background(), st)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, errors.ErrApply))

	cloud.AssertCalled(t, "DeleteVPC", mock.Anything, "vpc-0123")
}

func TestDestroyTearsDownInReverseOrder(t *testing.T) {
	st := testStack(t)
	cloud := new(MockCloudClient)

	cloud.On("FindInstance", mock.Anything, st.Name).Return("i-0123", nil)
	cloud.On("TerminateInstance", mock.Anything, "i-0123").Return(nil)
	cloud.On("DescribeInstance", mock.Anything, "i-0123").Return(&models.AWSInstance{
		InstanceID: "i-0123",
		State:      "terminated",
	}, nil)

	cloud.On("FindSecurityGroup", mock.Anything, st.Name).Return("sg-0123", nil)
	cloud.On("DeleteSecurityGroup", mock.Anything, "sg-0123").Return(nil)

	cloud.On("FindNatGateway", mock.Anything, st.Name).Return("nat-0123", nil)
	cloud.On("DeleteNatGateway", mock.Anything, "nat-0123").Return(nil)
	cloud.On("NatGatewayState", mock.Anything, "nat-0123").Return("deleted", nil)

	cloud.On("FindAddress", mock.Anything, st.Name).Return("eipalloc-0123", nil)
	cloud.On("ReleaseAddress", mock.Anything, "eipalloc-0123").Return(nil)

	publicRT, privateRT := awsd.RouteTableNames()
	cloud.On("FindRouteTable", mock.Anything, st.Name, privateRT).Return("rtb-priv", nil)
	cloud.On("DeleteRouteTable", mock.Anything, "rtb-priv").Return(nil)
	cloud.On("FindRouteTable", mock.Anything, st.Name, publicRT).Return("rtb-pub", nil)
	cloud.On("DeleteRouteTable", mock.Anything, "rtb-pub").Return(nil)

	cloud.On("FindVPC", mock.Anything, st.Name).Return("vpc-0123", nil)
	cloud.On("FindInternetGateway", mock.Anything, st.Name).Return("igw-0123", nil)
	cloud.On("DeleteInternetGateway", mock.Anything, "igw-0123", "vpc-0123").Return(nil)

	subnetIDs := []string{"subnet-pub-1", "subnet-pub-2", "subnet-priv-1", "subnet-priv-2"}
	for i, plan := range st.SubnetPlans {
		cloud.On("FindSubnet", mock.Anything, st.Name, plan.Name).Return(subnetIDs[i], nil)
		cloud.On("DeleteSubnet", mock.Anything, subnetIDs[i]).Return(nil)
	}

	cloud.On("DeleteVPC", mock.Anything, "vpc-0123").Return(nil)

	err := testService(cloud).Destroy(context.Background(), st)
	require.NoError(t, err)
	cloud.AssertExpectations(t)
}

func TestDestroyWithNothingProvisioned(t *testing.T) {
	st := testStack(t)
	cloud := new(MockCloudClient)

	cloud.On("FindInstance", mock.Anything, st.Name).Return("", nil)
	cloud.On("FindSecurityGroup", mock.Anything, st.Name).Return("", nil)
	cloud.On("FindNatGateway", mock.Anything, st.Name).Return("", nil)
	cloud.On("FindAddress", mock.Anything, st.Name).Return("", nil)
	cloud.On("FindRouteTable", mock.Anything, st.Name, mock.Anything).Return("", nil)
	cloud.On("FindVPC", mock.Anything, st.Name).Return("", nil)
	cloud.On("FindInternetGateway", mock.Anything, st.Name).Return("", nil)
	cloud.On("FindSubnet", mock.Anything, st.Name, mock.Anything).Return("", nil)

	err := testService(cloud).Destroy(context.Background(), st)
	require.NoError(t, err)

	cloud.AssertNotCalled(t, "TerminateInstance", mock.Anything, mock.Anything)
	cloud.AssertNotCalled(t, "DeleteVPC", mock.Anything, mock.Anything)
}

func TestWaitForInstanceRetriesUntilRunning(t *testing.T) {
	cloud := new(MockCloudClient)
	cloud.On("DescribeInstance", mock.Anything, "i-0123").Return(&models.AWSInstance{
		InstanceID: "i-0123",
		State:      "pending",
	}, nil).Twice()
	cloud.On("DescribeInstance", mock.Anything, "i-0123").Return(runningInstance("i-0123"), nil).Once()

	instance, err := testService(cloud).waitForInstance(context.Background(), "i-0123")
	require.NoError(t, err)
	assert.Equal(t, "running", instance.State)
	assert.NotEmpty(t, instance.PublicIP)
}

func TestWaitForNatGatewayFailedState(t *testing.T) {
	cloud := new(MockCloudClient)
	cloud.On("NatGatewayState", mock.Anything, "nat-0123").Return("failed", nil)

	err := testService(cloud).waitForNatGateway(context.Background(), "nat-0123")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrApply))
}

func TestResolveOutputs(t *testing.T) {
	result := &models.ProvisionedStack{
		VpcID:             "vpc-1",
		InternetGatewayID: "igw-1",
		PublicSubnetIDs:   []string{"subnet-1", "subnet-2"},
		SecurityGroupID:   "sg-1",
		InstanceID:        "i-1",
	}
	instance := runningInstance("i-1")

	tests := []struct {
		name    string
		outputs []stack.OutputBinding
		want    []models.Output
		wantErr string
	}{
		{
			name:    "standard bindings resolve in order",
			outputs: stack.StandardOutputs(),
			want: []models.Output{
				{Name: "VPCId", Value: "vpc-1", Description: "VPC ID"},
				{Name: "InternetGatewayId", Value: "igw-1", Description: "Internet Gateway ID"},
				{Name: "PublicSubnetId", Value: "subnet-1", Description: "Public Subnet ID"},
				{Name: "SecurityGroupId", Value: "sg-1", Description: "Security Group ID"},
				{Name: "EC2InstanceId", Value: "i-1", Description: "EC2 Instance ID"},
				{Name: "EC2PublicIP", Value: "54.210.1.2", Description: "EC2 Instance Public IP"},
				{Name: "EC2PublicDNS", Value: "ec2-54-210-1-2.compute-1.amazonaws.com", Description: "EC2 Instance Public DNS"},
			},
		},
		{
			name:    "unknown source is rejected",
			outputs: []stack.OutputBinding{{Name: "Mystery", Source: "mystery_value"}},
			wantErr: "unknown output source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := stack.New("TestStack", stack.NetworkSpec{
				CidrBlock: "10.0.0.0/16",
				MaxAZs:    2,
				Subnets: []stack.SubnetConfiguration{
					{Name: "PublicSubnet", Role: stack.RolePublic, CidrMask: 24},
				},
			}, stack.SecurityGroupSpec{}, stack.DefaultMachineImage(), stack.InstanceSpec{
				InstanceType: "t3.micro",
				KeyName:      "my-key-pair",
			}, tt.outputs)
			require.NoError(t, err)

			got, err := resolveOutputs(st, result, instance)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
