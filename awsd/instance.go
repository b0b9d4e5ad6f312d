package awsd

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"

	"github.com/nasir19noor/aws-cdk/awsd/models"
)

const nameInstance = "instance"

// RunInstanceInput carries the resolved references the instance needs.
type RunInstanceInput struct {
	InstanceType    string
	ImageID         string
	SubnetID        string
	SecurityGroupID string
	KeyName         string
	UserData        string
}

// RunInstance launches the single stack instance. User data is passed
// base64-encoded as the API requires; the script runs once at first boot
// and its outcome is not reported back.
func (c *AwsClient) RunInstance(ctx context.Context, stackName string, in RunInstanceInput) (string, error) {
	params := &ec2.RunInstancesInput{
		MinCount:          aws.Int32(1),
		MaxCount:          aws.Int32(1),
		ImageId:           aws.String(in.ImageID),
		InstanceType:      types.InstanceType(in.InstanceType),
		SubnetId:          aws.String(in.SubnetID),
		SecurityGroupIds:  []string{in.SecurityGroupID},
		KeyName:           aws.String(in.KeyName),
		TagSpecifications: tagSpec(types.ResourceTypeInstance, stackName, nameInstance),
	}
	if in.UserData != "" {
		params.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(in.UserData)))
	}

	out, err := c.client.RunInstances(ctx, params)
	if err != nil {
		return "", err
	}
	if len(out.Instances) == 0 {
		return "", errors.New("no instances in RunInstances response")
	}
	instanceID := aws.ToString(out.Instances[0].InstanceId)

	zap.L().Info("Instance launched",
		zap.String("operation", "instance_run"),
		zap.String("instance_id", instanceID),
		zap.String("instance_type", in.InstanceType),
		zap.String("subnet_id", in.SubnetID),
	)
	return instanceID, nil
}

// FindInstance returns the stack's live instance ID, ignoring instances
// already shutting down or terminated.
func (c *AwsClient) FindInstance(ctx context.Context, stackName string) (string, error) {
	filters := stackFilters(stackName, nameInstance)
	filters = append(filters, types.Filter{
		Name:   aws.String("instance-state-name"),
		Values: []string{"pending", "running"},
	})
	out, err := c.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: filters,
	})
	if err != nil {
		return "", err
	}
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			return aws.ToString(inst.InstanceId), nil
		}
	}
	return "", nil
}

// DescribeInstance fetches one instance and maps it to the local model.
func (c *AwsClient) DescribeInstance(ctx context.Context, instanceID string) (*models.AWSInstance, error) {
	out, err := c.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return nil, err
	}

	if len(out.Reservations) == 0 || len(out.Reservations[0].Instances) == 0 {
		return nil, errors.New("no instances found")
	}

	i := out.Reservations[0].Instances[0]

	tags := make(map[string]string)
	for _, tag := range i.Tags {
		if tag.Key != nil && tag.Value != nil {
			tags[*tag.Key] = *tag.Value
		}
	}

	instance := &models.AWSInstance{
		InstanceID:     aws.ToString(i.InstanceId),
		InstanceType:   string(i.InstanceType),
		AMI:            aws.ToString(i.ImageId),
		PrivateIP:      aws.ToString(i.PrivateIpAddress),
		PublicIP:       aws.ToString(i.PublicIpAddress),
		KeyName:        aws.ToString(i.KeyName),
		PrivateDnsName: aws.ToString(i.PrivateDnsName),
		PublicDnsName:  aws.ToString(i.PublicDnsName),
		SubnetID:       aws.ToString(i.SubnetId),
		Tags:           tags,
		SecurityGroups: parseSecurityGroups(i.SecurityGroups),
	}
	if i.State != nil {
		instance.State = string(i.State.Name)
	}
	if i.LaunchTime != nil {
		instance.LaunchTime = i.LaunchTime.String()
	}

	return instance, nil
}

// TerminateInstance requests termination; callers poll DescribeInstance
// until the state reaches terminated.
func (c *AwsClient) TerminateInstance(ctx context.Context, instanceID string) error {
	_, err := c.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	return err
}

// Helper function to parse security groups
func parseSecurityGroups(groups []types.GroupIdentifier) []models.SecurityGroup {
	result := make([]models.SecurityGroup, 0)
	for _, group := range groups {
		result = append(result, models.SecurityGroup{
			GroupId: *group.GroupId,
		})
	}
	return result
}
