package awsd

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"go.uber.org/zap"

	"github.com/nasir19noor/aws-cdk/errors"
	"github.com/nasir19noor/aws-cdk/stack"
)

// AvailabilityZones returns the names of the first max available zones in
// the client's region.
func (c *AwsClient) AvailabilityZones(ctx context.Context, max int) ([]string, error) {
	out, err := c.client.DescribeAvailabilityZones(ctx, &ec2.DescribeAvailabilityZonesInput{
		Filters: []types.Filter{
			{Name: aws.String("state"), Values: []string{"available"}},
		},
	})
	if err != nil {
		return nil, err
	}

	var zones []string
	for _, az := range out.AvailabilityZones {
		zones = append(zones, aws.ToString(az.ZoneName))
	}
	sort.Strings(zones)

	if len(zones) < max {
		return nil, errors.New(errors.ErrAWSClient, "not enough availability zones in region",
			map[string]interface{}{
				"requested": max,
				"available": len(zones),
			}, nil)
	}
	return zones[:max], nil
}

// imageNamePattern maps the image selector onto the provider's AMI naming
// scheme. Only the Amazon Linux 2 standard/HVM/gp2 combination is published
// under this pattern; other selectors fail the lookup rather than guess.
func imageNamePattern(spec stack.MachineImageSpec) (string, bool) {
	if spec.Distribution != "amazon-linux-2" || spec.Edition != "standard" ||
		spec.Virtualization != "hvm" || spec.Storage != "general-purpose" {
		return "", false
	}
	return "amzn2-ami-hvm-*-x86_64-gp2", true
}

// ResolveImage resolves the machine image spec to the most recent matching
// AMI. The result is not pinned; consecutive applies may resolve different
// images as Amazon publishes new ones.
func (c *AwsClient) ResolveImage(ctx context.Context, spec stack.MachineImageSpec) (string, error) {
	pattern, ok := imageNamePattern(spec)
	if !ok {
		return "", errors.New(errors.ErrImageLookup, "unsupported machine image selector",
			map[string]interface{}{
				"distribution":   spec.Distribution,
				"edition":        spec.Edition,
				"virtualization": spec.Virtualization,
				"storage":        spec.Storage,
			}, nil)
	}

	out, err := c.client.DescribeImages(ctx, &ec2.DescribeImagesInput{
		Owners: []string{"amazon"},
		Filters: []types.Filter{
			{Name: aws.String("name"), Values: []string{pattern}},
			{Name: aws.String("state"), Values: []string{"available"}},
			{Name: aws.String("virtualization-type"), Values: []string{"hvm"}},
		},
	})
	if err != nil {
		return "", errors.New(errors.ErrImageLookup, "image catalog lookup failed", nil, err)
	}
	if len(out.Images) == 0 {
		return "", errors.New(errors.ErrImageLookup, "no matching machine image in region",
			map[string]interface{}{
				"name_pattern": pattern,
			}, nil)
	}

	images := out.Images
	sort.Slice(images, func(i, j int) bool {
		return aws.ToString(images[i].CreationDate) > aws.ToString(images[j].CreationDate)
	})
	imageID := aws.ToString(images[0].ImageId)

	zap.L().Info("Machine image resolved",
		zap.String("operation", "image_resolve"),
		zap.String("image_id", imageID),
		zap.String("name", aws.ToString(images[0].Name)),
	)
	return imageID, nil
}

// KeyPairExists checks the externally managed key pair precondition. The
// stack never creates key pairs.
func (c *AwsClient) KeyPairExists(ctx context.Context, name string) (bool, error) {
	out, err := c.client.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{
		KeyNames: []string{name},
	})
	if err != nil {
		// The API reports a missing key pair as an error, not an empty list.
		var apiErr interface{ ErrorCode() string }
		if stderrors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidKeyPair.NotFound" {
			return false, nil
		}
		return false, err
	}
	return len(out.KeyPairs) > 0, nil
}
