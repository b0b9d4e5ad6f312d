package awsd

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"

	"github.com/nasir19noor/aws-cdk/stack"
)

const nameSecurityGroup = "sg"

// CreateSecurityGroup creates the group and authorizes its ingress rules one
// by one, preserving the declared order. Outbound traffic stays on the EC2
// default allow-all; no egress rules are declared.
func (c *AwsClient) CreateSecurityGroup(ctx context.Context, stackName, vpcID string, spec stack.SecurityGroupSpec) (string, error) {
	out, err := c.client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:         aws.String(stackName + "-" + nameSecurityGroup),
		Description:       aws.String(spec.Description),
		VpcId:             aws.String(vpcID),
		TagSpecifications: tagSpec(types.ResourceTypeSecurityGroup, stackName, nameSecurityGroup),
	})
	if err != nil {
		return "", err
	}
	groupID := aws.ToString(out.GroupId)

	for _, rule := range spec.Ingress {
		_, err = c.client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId: aws.String(groupID),
			IpPermissions: []types.IpPermission{
				{
					IpProtocol: aws.String(rule.Protocol),
					FromPort:   aws.Int32(rule.Port),
					ToPort:     aws.Int32(rule.Port),
					IpRanges: []types.IpRange{
						{
							CidrIp:      aws.String(rule.CidrIP),
							Description: aws.String(rule.Description),
						},
					},
				},
			},
		})
		if err != nil {
			return groupID, err
		}
		if rule.Port == 22 && rule.CidrIP == "0.0.0.0/0" {
			zap.L().Warn("SSH ingress is open to the whole internet",
				zap.String("operation", "sg_ingress"),
				zap.String("group_id", groupID),
			)
		}
	}

	zap.L().Info("Security group created",
		zap.String("operation", "sg_create"),
		zap.String("group_id", groupID),
		zap.Int("ingress_rules", len(spec.Ingress)),
	)
	return groupID, nil
}

func (c *AwsClient) FindSecurityGroup(ctx context.Context, stackName string) (string, error) {
	out, err := c.client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: stackFilters(stackName, nameSecurityGroup),
	})
	if err != nil {
		return "", err
	}
	if len(out.SecurityGroups) == 0 {
		return "", nil
	}
	return aws.ToString(out.SecurityGroups[0].GroupId), nil
}

func (c *AwsClient) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	_, err := c.client.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: aws.String(groupID),
	})
	return err
}
